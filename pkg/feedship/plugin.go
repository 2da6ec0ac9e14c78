package feedship

import (
	"context"

	"github.com/bft-labs/feedship/pkg/log"
)

// Plugin extends a Feedship instance. Plugins are initialized on the first
// launch in registration order and shut down in reverse order.
type Plugin interface {
	// Name returns the plugin identifier used in logs.
	Name() string

	// Initialize starts the plugin. ctx is canceled on Shutdown.
	Initialize(ctx context.Context, cfg PluginConfig) error

	// Shutdown stops the plugin and waits for its goroutines.
	Shutdown(ctx context.Context) error
}

// Syncer re-runs the session-gated sync path.
type Syncer interface {
	// Sync resolves the feed id and uploads queued data when a session
	// exists. It reports whether the sync was issued.
	Sync(ctx context.Context) bool
}

// QueueMaintainer exposes retention controls over the local upload queue.
type QueueMaintainer interface {
	// QueueBytes returns the summed payload size of queued records.
	QueueBytes(ctx context.Context) (int64, error)

	// TrimQueue drops the oldest records until at most target bytes remain.
	TrimQueue(ctx context.Context, target int64) (records int, bytes int64, err error)
}

// PluginConfig is passed to Plugin.Initialize.
type PluginConfig struct {
	DataDir   string
	QueuePath string
	Logger    log.Logger
	Syncer    Syncer
	Queue     QueueMaintainer
}
