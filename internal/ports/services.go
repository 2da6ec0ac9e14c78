package ports

import (
	"context"
	"time"

	"github.com/bft-labs/feedship/internal/domain"
)

// TokenService renews the short-lived access token.
type TokenService interface {
	// Refresh renews the access token. It must be safe to call when no
	// credential has been stored yet, in which case it fails with
	// domain.ErrNoCredential.
	Refresh(ctx context.Context) error
}

// TokenSource hands out the current access token for outgoing requests.
// It may block on a refresh that is already in flight and returns an empty
// string when no token can be obtained.
type TokenSource interface {
	AccessToken(ctx context.Context) string
}

// FeedIDSource looks the feed id up on the backend.
type FeedIDSource interface {
	FetchFeedID(ctx context.Context) (domain.FeedID, error)
}

// FeedIDCache stores the last resolved feed id.
type FeedIDCache interface {
	// Load returns the cached id and when it was resolved, or
	// domain.ErrCacheMiss when nothing is cached.
	Load() (domain.FeedID, time.Time, error)

	// Store replaces the cached id.
	Store(id domain.FeedID, resolvedAt time.Time) error
}

// FeedIDResolver resolves the feed id under a resolution policy.
// Each call returns exactly one result.
type FeedIDResolver interface {
	Resolve(ctx context.Context, policy domain.ResolutionPolicy) (domain.FeedID, error)
}

// FeedUploader uploads each data category independently.
// Each method returns the number of records the backend accepted.
type FeedUploader interface {
	UploadAssets(ctx context.Context, id domain.FeedID) (int, error)
	UploadEvents(ctx context.Context, id domain.FeedID) (int, error)
	UploadContacts(ctx context.Context, id domain.FeedID) (int, error)
	UploadReminders(ctx context.Context, id domain.FeedID) (int, error)
}
