package queuecleanup

import "github.com/bft-labs/feedship/pkg/feedship"

// WithQueueCleanup returns an Option that bounds the upload queue.
//
// Usage:
//
//	f, err := feedship.New(cfg,
//	    queuecleanup.WithQueueCleanup(queuecleanup.Config{
//	        CheckInterval: 30 * time.Minute,
//	        HighWatermark: 64 << 20,
//	        LowWatermark:  48 << 20,
//	    }),
//	)
func WithQueueCleanup(cfg Config) feedship.Option {
	return feedship.WithPlugin(New(cfg))
}

// WithDefaultQueueCleanup enables queue cleanup with DefaultConfig.
func WithDefaultQueueCleanup() feedship.Option {
	return WithQueueCleanup(DefaultConfig())
}
