package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/bft-labs/feedship/internal/domain"
	"github.com/bft-labs/feedship/internal/ports"
	"github.com/bft-labs/feedship/pkg/log"
)

// DefaultFeedIDTTL is how long a cached feed id is served under CacheFirst.
const DefaultFeedIDTTL = 24 * time.Hour

// Resolver implements ports.FeedIDResolver over a network source and an
// optional local cache.
type Resolver struct {
	session ports.SessionState
	source  ports.FeedIDSource
	cache   ports.FeedIDCache
	ttl     time.Duration
	logger  log.Logger
	now     func() time.Time

	group singleflight.Group
}

// NewResolver creates a feed id resolver. cache may be nil, in which case
// CacheFirst always goes to the network. A non-positive ttl keeps cached ids
// forever.
func NewResolver(session ports.SessionState, source ports.FeedIDSource, cache ports.FeedIDCache, ttl time.Duration, logger log.Logger) *Resolver {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &Resolver{
		session: session,
		source:  source,
		cache:   cache,
		ttl:     ttl,
		logger:  logger,
		now:     time.Now,
	}
}

// Resolve returns the feed id under policy. It fails with ErrNotLoggedIn
// when no session exists. Concurrent network lookups share one request.
func (r *Resolver) Resolve(ctx context.Context, policy domain.ResolutionPolicy) (domain.FeedID, error) {
	if !r.session.IsLoggedIn() {
		return "", domain.ErrNotLoggedIn
	}

	switch policy {
	case domain.CacheFirst:
		if id, ok := r.cached(); ok {
			return id, nil
		}
		return r.fetch(ctx)
	case domain.NetworkOnly:
		return r.fetch(ctx)
	default:
		return "", fmt.Errorf("unknown resolution policy %d", policy)
	}
}

// cached returns the cached id when one exists and has not expired.
func (r *Resolver) cached() (domain.FeedID, bool) {
	if r.cache == nil {
		return "", false
	}
	id, resolvedAt, err := r.cache.Load()
	if err != nil {
		if !errors.Is(err, domain.ErrCacheMiss) {
			r.logger.Warn("feed id cache unreadable", log.Op(opResolveFeedID), log.Err(err))
		}
		return "", false
	}
	if id.Empty() {
		return "", false
	}
	if r.ttl > 0 && r.now().Sub(resolvedAt) >= r.ttl {
		r.logger.Debug("cached feed id expired",
			log.Op(opResolveFeedID),
			log.Duration("age", r.now().Sub(resolvedAt)))
		return "", false
	}
	return id, true
}

func (r *Resolver) fetch(ctx context.Context) (domain.FeedID, error) {
	v, err, _ := r.group.Do("feed_id", func() (interface{}, error) {
		id, err := r.source.FetchFeedID(ctx)
		if err != nil {
			return domain.FeedID(""), err
		}
		if id.Empty() {
			return domain.FeedID(""), errors.New("backend returned an empty feed id")
		}
		if r.cache != nil {
			if err := r.cache.Store(id, r.now()); err != nil {
				r.logger.Warn("failed to cache feed id", log.Op(opResolveFeedID), log.Err(err))
			}
		}
		return id, nil
	})
	if err != nil {
		return "", err
	}
	return v.(domain.FeedID), nil
}
