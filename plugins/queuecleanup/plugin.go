// Package queuecleanup bounds the local upload queue. When enabled, it
// periodically checks the queued payload size and drops the oldest records
// once the size exceeds a high watermark.
package queuecleanup

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bft-labs/feedship/pkg/feedship"
	"github.com/bft-labs/feedship/pkg/log"
)

// Plugin implements queue retention.
type Plugin struct {
	mu sync.Mutex

	checkInterval  time.Duration
	highWatermark  int64
	lowWatermark   int64
	runImmediately bool

	queue  feedship.QueueMaintainer
	logger log.Logger
	cancel context.CancelFunc
	wg     sync.WaitGroup
	runs   int
}

// Config holds configuration options for the queue cleanup plugin.
type Config struct {
	// CheckInterval is how often to check the queue size.
	// Default: 1 hour
	CheckInterval time.Duration

	// HighWatermark is the payload size in bytes above which cleanup begins.
	// Default: 256 MiB
	HighWatermark int64

	// LowWatermark is the target payload size in bytes after cleanup.
	// Default: 192 MiB
	LowWatermark int64

	// RunImmediately runs a check as soon as the plugin starts.
	RunImmediately bool
}

const (
	defaultCheckInterval = time.Hour
	defaultHighWatermark = 256 << 20
	defaultLowWatermark  = 192 << 20
)

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		CheckInterval:  defaultCheckInterval,
		HighWatermark:  defaultHighWatermark,
		LowWatermark:   defaultLowWatermark,
		RunImmediately: true,
	}
}

// New creates a queue cleanup plugin. A low watermark at or above the high
// watermark is reset to three quarters of it.
func New(cfg Config) *Plugin {
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = defaultCheckInterval
	}
	if cfg.HighWatermark <= 0 {
		cfg.HighWatermark = defaultHighWatermark
	}
	if cfg.LowWatermark <= 0 || cfg.LowWatermark >= cfg.HighWatermark {
		cfg.LowWatermark = cfg.HighWatermark / 4 * 3
	}

	return &Plugin{
		checkInterval:  cfg.CheckInterval,
		highWatermark:  cfg.HighWatermark,
		lowWatermark:   cfg.LowWatermark,
		runImmediately: cfg.RunImmediately,
	}
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string {
	return "queuecleanup"
}

// Initialize starts the cleanup loop.
func (p *Plugin) Initialize(ctx context.Context, cfg feedship.PluginConfig) error {
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNoopLogger()
	}

	p.mu.Lock()
	p.queue = cfg.Queue
	p.logger = logger
	p.mu.Unlock()

	if cfg.Queue == nil {
		logger.Warn("queue cleanup disabled: no queue configured")
		return nil
	}

	loopCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	logger.Info("queue cleanup plugin initialized",
		log.Duration("check_interval", p.checkInterval),
		log.String("high_watermark", formatBytes(p.highWatermark)),
		log.String("low_watermark", formatBytes(p.lowWatermark)))

	p.wg.Add(1)
	go p.cleanupLoop(loopCtx)

	return nil
}

// Shutdown stops the cleanup loop.
func (p *Plugin) Shutdown(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
	return nil
}

// Runs returns how many checks have completed.
func (p *Plugin) Runs() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.runs
}

func (p *Plugin) cleanupLoop(ctx context.Context) {
	defer p.wg.Done()

	if p.runImmediately {
		p.cleanupOnce(ctx)
	}

	ticker := time.NewTicker(p.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.cleanupOnce(ctx)
		}
	}
}

func (p *Plugin) cleanupOnce(ctx context.Context) {
	defer func() {
		p.mu.Lock()
		p.runs++
		p.mu.Unlock()
	}()

	size, err := p.queue.QueueBytes(ctx)
	if err != nil {
		p.logger.Error("queue cleanup: size check failed", log.Err(err))
		return
	}
	if size <= p.highWatermark {
		return
	}

	records, freed, err := p.queue.TrimQueue(ctx, p.lowWatermark)
	if err != nil {
		p.logger.Error("queue cleanup: trim failed",
			log.Int("records", records),
			log.Err(err))
		return
	}
	if records > 0 {
		p.logger.Info("queue cleanup completed",
			log.Int("records", records),
			log.String("freed", formatBytes(freed)),
			log.String("before", formatBytes(size)))
	}
}

func formatBytes(b int64) string {
	const (
		_          = iota
		KB float64 = 1 << (10 * iota)
		MB
		GB
	)

	fb := float64(b)
	switch {
	case fb >= GB:
		return fmt.Sprintf("%.2fGiB", fb/GB)
	case fb >= MB:
		return fmt.Sprintf("%.2fMiB", fb/MB)
	case fb >= KB:
		return fmt.Sprintf("%.2fKiB", fb/KB)
	default:
		return fmt.Sprintf("%dB", b)
	}
}

var _ feedship.Plugin = (*Plugin)(nil)
