package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/bft-labs/feedship/internal/domain"
	"github.com/bft-labs/feedship/internal/ports"
)

// FeedDataConfig bounds how much queued data goes into one request.
type FeedDataConfig struct {
	// MaxBatchBytes caps the payload bytes per request. Default: 1 MiB.
	MaxBatchBytes int

	// PageSize is how many queued records are read at a time. Default: 500.
	PageSize int
}

type uploadBody struct {
	FeedID string            `json:"FeedId"`
	Items  []json.RawMessage `json:"items"`
}

// FeedDataService implements ports.FeedUploader. Each category drains its own
// queue partition; records are acknowledged only after a 2xx response.
// At most one drain per category runs at a time, so overlapping syncs never
// send the same pending record twice.
type FeedDataService struct {
	c      *client
	queue  ports.UploadQueue
	tokens ports.TokenSource
	cfg    FeedDataConfig

	lanes map[domain.Category]chan struct{}
}

// NewFeedDataService creates the category uploader.
func NewFeedDataService(cc ClientConfig, queue ports.UploadQueue, tokens ports.TokenSource, cfg FeedDataConfig) *FeedDataService {
	if cfg.MaxBatchBytes <= 0 {
		cfg.MaxBatchBytes = 1 << 20
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 500
	}
	lanes := make(map[domain.Category]chan struct{}, len(domain.Categories()))
	for _, c := range domain.Categories() {
		lanes[c] = make(chan struct{}, 1)
	}
	return &FeedDataService{c: newClient(cc), queue: queue, tokens: tokens, cfg: cfg, lanes: lanes}
}

func (s *FeedDataService) UploadAssets(ctx context.Context, id domain.FeedID) (int, error) {
	return s.upload(ctx, id, domain.CategoryAssets)
}

func (s *FeedDataService) UploadEvents(ctx context.Context, id domain.FeedID) (int, error) {
	return s.upload(ctx, id, domain.CategoryEvents)
}

func (s *FeedDataService) UploadContacts(ctx context.Context, id domain.FeedID) (int, error) {
	return s.upload(ctx, id, domain.CategoryContacts)
}

func (s *FeedDataService) UploadReminders(ctx context.Context, id domain.FeedID) (int, error) {
	return s.upload(ctx, id, domain.CategoryReminders)
}

// upload sends every queued record of category. It stops at the first failed
// batch; earlier batches stay acknowledged and the rest stay queued.
func (s *FeedDataService) upload(ctx context.Context, id domain.FeedID, category domain.Category) (int, error) {
	if id.Empty() {
		return 0, fmt.Errorf("upload %s: empty feed id", category)
	}

	lane, ok := s.lanes[category]
	if !ok {
		return 0, fmt.Errorf("upload %s: unknown category", category)
	}
	select {
	case lane <- struct{}{}:
		defer func() { <-lane }()
	case <-ctx.Done():
		return 0, fmt.Errorf("upload %s: %w", category, ctx.Err())
	}

	sent := 0
	for {
		records, err := s.queue.Pending(ctx, category, s.cfg.PageSize)
		if err != nil {
			return sent, err
		}
		if len(records) == 0 {
			return sent, nil
		}

		for _, b := range domain.Split(category, records, s.cfg.MaxBatchBytes) {
			if err := s.send(ctx, id, b); err != nil {
				return sent, fmt.Errorf("upload %s: %w", category, err)
			}
			if err := s.queue.Ack(ctx, b.IDs); err != nil {
				return sent, fmt.Errorf("upload %s: %w", category, err)
			}
			sent += b.Size()
		}

		if len(records) < s.cfg.PageSize {
			return sent, nil
		}
	}
}

func (s *FeedDataService) send(ctx context.Context, id domain.FeedID, b *domain.UploadBatch) error {
	body, err := json.Marshal(uploadBody{FeedID: id.String(), Items: b.Payloads})
	if err != nil {
		return fmt.Errorf("marshal batch: %w", err)
	}
	_, err = s.c.do(ctx, http.MethodPost, bearer(ctx, s.tokens), body, "v1", "feeds", id.String(), string(b.Category))
	return err
}
