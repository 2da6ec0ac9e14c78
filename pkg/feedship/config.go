package feedship

import (
	"errors"
	"fmt"
	"time"

	"github.com/bft-labs/feedship/internal/domain"
	"github.com/bft-labs/feedship/internal/endpoint"
)

// DefaultServiceURL is the backend used when neither the configuration nor
// the persisted settings name one.
const DefaultServiceURL = "https://api.feedship.io"

// RegionalCode is one selectable regional code.
type RegionalCode = domain.RegionalCode

// Config holds the configuration of a Feedship instance.
// Use DefaultConfig to get a Config with sensible defaults.
type Config struct {
	// DataDir holds the settings file, the sealed credential file, the feed
	// id cache and the upload queue database. Required.
	DataDir string

	// Passphrase unlocks the credential file. Required.
	Passphrase string

	// ServiceURL is the default backend endpoint. Persisted settings
	// override it at launch. Default: DefaultServiceURL.
	ServiceURL string

	// APIKey is sent as x-api-key on every request when set.
	APIKey string

	// UserAgent is sent on every request when set.
	UserAgent string

	// RegionalCodes are the defaults returned when the settings file lists none.
	RegionalCodes []RegionalCode

	// HTTPTimeout bounds every backend request. Default: 30 seconds.
	HTTPTimeout time.Duration

	// RequestsPerSecond limits outgoing requests. Zero disables the limit.
	RequestsPerSecond float64

	// RequestBurst is the limiter burst. Default: 4.
	RequestBurst int

	// TokenAttempts is the number of tries per token refresh. Default: 1.
	TokenAttempts int

	// FeedIDTTL is how long a cached feed id is served to cache-first
	// lookups. Default: 24 hours.
	FeedIDTTL time.Duration

	// MaxBatchBytes caps the payload bytes per upload request. Default: 1 MiB.
	MaxBatchBytes int

	// UploadPageSize is how many queued records are read at a time. Default: 500.
	UploadPageSize int

	// ShutdownTimeout bounds how long Shutdown waits for background work.
	// Default: 30 seconds.
	ShutdownTimeout time.Duration
}

// DefaultConfig returns a Config with sensible default values.
// DataDir and Passphrase must still be set.
func DefaultConfig() Config {
	var c Config
	c.SetDefaults()
	return c
}

// SetDefaults fills unset fields with defaults.
func (c *Config) SetDefaults() {
	if c.ServiceURL == "" {
		c.ServiceURL = DefaultServiceURL
	}
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = 30 * time.Second
	}
	if c.RequestBurst <= 0 {
		c.RequestBurst = 4
	}
	if c.TokenAttempts <= 0 {
		c.TokenAttempts = 1
	}
	if c.FeedIDTTL <= 0 {
		c.FeedIDTTL = 24 * time.Hour
	}
	if c.MaxBatchBytes <= 0 {
		c.MaxBatchBytes = 1 << 20
	}
	if c.UploadPageSize <= 0 {
		c.UploadPageSize = 500
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 30 * time.Second
	}
}

// Validate reports every problem with the configuration.
func (c Config) Validate() error {
	var errs []error
	if c.DataDir == "" {
		errs = append(errs, errors.New("data dir is required"))
	}
	if c.Passphrase == "" {
		errs = append(errs, errors.New("credential passphrase is required"))
	}
	if _, err := endpoint.ParseURL(c.ServiceURL); err != nil {
		errs = append(errs, err)
	}
	if c.RequestsPerSecond < 0 {
		errs = append(errs, fmt.Errorf("requests per second must not be negative, got %v", c.RequestsPerSecond))
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", domain.ErrInvalidConfig, errors.Join(errs...))
}
