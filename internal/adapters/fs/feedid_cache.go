package fs

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bft-labs/feedship/internal/domain"
)

const feedIDCacheFileName = "feed_id.json"

type feedIDEntry struct {
	FeedID     string    `json:"feed_id"`
	ResolvedAt time.Time `json:"resolved_at"`
}

// FeedIDCache implements ports.FeedIDCache using a JSON file.
type FeedIDCache struct {
	dir string
	mu  sync.Mutex
}

// NewFeedIDCache creates a feed id cache in dir.
func NewFeedIDCache(dir string) *FeedIDCache {
	return &FeedIDCache{dir: dir}
}

// Path returns the full path to the cache file.
func (c *FeedIDCache) Path() string {
	return filepath.Join(c.dir, feedIDCacheFileName)
}

// Load returns the cached feed id, or domain.ErrCacheMiss when none is stored.
func (c *FeedIDCache) Load() (domain.FeedID, time.Time, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := os.ReadFile(c.Path())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", time.Time{}, domain.ErrCacheMiss
		}
		return "", time.Time{}, fmt.Errorf("read feed id cache: %w", err)
	}

	var entry feedIDEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return "", time.Time{}, fmt.Errorf("decode feed id cache: %w", err)
	}
	if entry.FeedID == "" {
		return "", time.Time{}, domain.ErrCacheMiss
	}
	return domain.FeedID(entry.FeedID), entry.ResolvedAt, nil
}

// Store replaces the cached feed id.
func (c *FeedIDCache) Store(id domain.FeedID, resolvedAt time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := json.MarshalIndent(feedIDEntry{FeedID: id.String(), ResolvedAt: resolvedAt.UTC()}, "", "  ")
	if err != nil {
		return err
	}
	if err := writeFileAtomic(c.Path(), data, 0o600); err != nil {
		return fmt.Errorf("write feed id cache: %w", err)
	}
	return nil
}
