package queuewatcher

import "github.com/bft-labs/feedship/pkg/feedship"

// WithQueueWatcher returns a feedship Option that enables queue watching.
// When enabled, the plugin watches the upload queue database and re-runs the
// sync path after records are added.
//
// Usage:
//
//	f, err := feedship.New(cfg,
//	    queuewatcher.WithQueueWatcher(queuewatcher.Config{
//	        DebounceDelay: 500 * time.Millisecond,
//	        MinInterval:   5 * time.Second,
//	    }),
//	)
func WithQueueWatcher(cfg Config) feedship.Option {
	return feedship.WithPlugin(New(cfg))
}

// WithDefaultQueueWatcher returns a feedship Option that enables queue
// watching with default settings (debounce 1s, at most one sync every 10s).
func WithDefaultQueueWatcher() feedship.Option {
	return WithQueueWatcher(DefaultConfig())
}
