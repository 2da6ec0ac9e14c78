// Package queuewatcher re-runs the feedship sync path when the upload queue
// changes on disk, so data queued while the host keeps running is shipped
// without waiting for the next launch.
package queuewatcher

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bft-labs/feedship/pkg/feedship"
	"github.com/bft-labs/feedship/pkg/log"
)

// Plugin watches the queue database and triggers a sync after changes.
type Plugin struct {
	mu sync.Mutex

	// Configuration
	debounceDelay time.Duration
	minInterval   time.Duration

	// Runtime state
	queuePath string
	logger    log.Logger
	syncer    feedship.Syncer
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	debounce  *time.Timer
	lastSync  time.Time
	syncs     int
}

// Config holds configuration options for the queue watcher plugin.
type Config struct {
	// DebounceDelay is the quiet period after the last change before a sync.
	// Default: 1 second
	DebounceDelay time.Duration

	// MinInterval is the minimum time between two syncs. Acknowledging
	// uploaded records writes to the queue too, so this bounds how often
	// the watcher reacts to its own uploads.
	// Default: 10 seconds
	MinInterval time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		DebounceDelay: time.Second,
		MinInterval:   10 * time.Second,
	}
}

// New creates a new queue watcher plugin with the given configuration.
func New(cfg Config) *Plugin {
	if cfg.DebounceDelay <= 0 {
		cfg.DebounceDelay = time.Second
	}
	if cfg.MinInterval < 0 {
		cfg.MinInterval = 0
	}
	return &Plugin{
		debounceDelay: cfg.DebounceDelay,
		minInterval:   cfg.MinInterval,
	}
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string {
	return "queuewatcher"
}

// Initialize starts watching the queue database directory.
func (p *Plugin) Initialize(ctx context.Context, cfg feedship.PluginConfig) error {
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNoopLogger()
	}

	p.mu.Lock()
	p.queuePath = cfg.QueuePath
	p.logger = logger.With(log.String("plugin", p.Name()))
	p.syncer = cfg.Syncer
	p.mu.Unlock()

	if p.queuePath == "" || p.syncer == nil {
		p.logger.Warn("queue watcher disabled: queue path or syncer not configured")
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(p.queuePath)); err != nil {
		watcher.Close()
		return err
	}

	watchCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.logger.Info("queue watcher initialized", log.String("path", p.queuePath))

	p.wg.Add(1)
	go p.watchLoop(watchCtx, watcher)

	return nil
}

// Shutdown stops the watcher and any pending debounced sync.
func (p *Plugin) Shutdown(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()

	p.mu.Lock()
	if p.debounce != nil {
		p.debounce.Stop()
	}
	p.mu.Unlock()
	return nil
}

// Syncs returns how many syncs the watcher has triggered.
func (p *Plugin) Syncs() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.syncs
}

func (p *Plugin) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer p.wg.Done()
	defer watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !p.isQueueFile(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			p.debounceSync(ctx)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			p.logger.Error("watcher error", log.Err(err))
		}
	}
}

// isQueueFile matches the database and its SQLite journal files.
func (p *Plugin) isQueueFile(name string) bool {
	return strings.HasPrefix(filepath.Base(name), filepath.Base(p.queuePath))
}

func (p *Plugin) debounceSync(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.debounce != nil {
		p.debounce.Stop()
	}

	delay := p.debounceDelay
	if !p.lastSync.IsZero() {
		if wait := p.minInterval - time.Since(p.lastSync); wait > delay {
			delay = wait
		}
	}

	p.debounce = time.AfterFunc(delay, func() {
		if ctx.Err() != nil {
			return
		}
		p.mu.Lock()
		p.lastSync = time.Now()
		p.syncs++
		p.mu.Unlock()

		if p.syncer.Sync(ctx) {
			p.logger.Info("queue changed, sync issued")
		} else {
			p.logger.Debug("queue changed, no session to sync")
		}
	})
}

// Ensure Plugin implements feedship.Plugin.
var _ feedship.Plugin = (*Plugin)(nil)
