package feedship

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/bft-labs/feedship/internal/adapters/fs"
	httpAdapter "github.com/bft-labs/feedship/internal/adapters/http"
	"github.com/bft-labs/feedship/internal/app"
	"github.com/bft-labs/feedship/internal/domain"
	"github.com/bft-labs/feedship/internal/endpoint"
	"github.com/bft-labs/feedship/internal/metrics"
	"github.com/bft-labs/feedship/internal/queue"
	"github.com/bft-labs/feedship/pkg/log"
)

// Feedship bootstraps a client session and ships locally queued data to the
// backend. Use New to create an instance and OnApplicationLaunch to run the
// launch sequence.
type Feedship struct {
	config    Config
	opts      options
	lifecycle *app.Lifecycle
	orch      *app.Orchestrator
	endpoint  *endpoint.Holder
	settings  *fs.SettingsFile
	creds     *fs.CredentialFile
	cache     *fs.FeedIDCache
	queue     *queue.Store
	tokens    *httpAdapter.TokenService
	metrics   *metrics.Collector
	logger    log.Logger
	plugins   []Plugin

	mu     sync.Mutex
	cancel context.CancelFunc
}

// New creates a Feedship instance and wires its collaborators.
// The instance is created in StateStopped.
// Returns an error if configuration is invalid or the queue cannot be opened.
func New(cfg Config, opts ...Option) (*Feedship, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	o := defaultOptions(httpClient)
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = log.NewNoopLogger()
	}
	logger := o.logger
	if o.router == nil {
		o.router = app.NewLogRouter(logger)
	}

	emitter := &eventEmitterWrapper{handler: o.eventHandler}
	observers := app.Observers{emitter}
	var collector *metrics.Collector
	if o.metrics {
		collector = metrics.NewCollector(o.metricsNamespace)
		observers = append(observers, collector)
	}

	holder, err := endpoint.Parse(cfg.ServiceURL)
	if err != nil {
		return nil, err
	}

	defaults := fs.DefaultSettings(holder.Base())
	defaults.RegionalCodes = cfg.RegionalCodes
	settings := fs.NewSettingsFile(cfg.DataDir, defaults)
	creds := fs.NewCredentialFile(cfg.DataDir, cfg.Passphrase)
	cache := fs.NewFeedIDCache(cfg.DataDir)

	store, err := queue.Open(filepath.Join(cfg.DataDir, queue.DBFileName))
	if err != nil {
		return nil, fmt.Errorf("open upload queue: %w", err)
	}

	cc := httpAdapter.ClientConfig{
		HTTP:      httpAdapter.NewRateLimitedClient(o.httpClient, cfg.RequestsPerSecond, cfg.RequestBurst),
		Endpoint:  holder,
		APIKey:    cfg.APIKey,
		UserAgent: cfg.UserAgent,
	}
	tokens := httpAdapter.NewTokenService(cc, creds, httpAdapter.TokenServiceConfig{
		Attempts: cfg.TokenAttempts,
	})
	session := app.NewCredentialSession(creds, logger)
	resolver := app.NewResolver(session, httpAdapter.NewFeedIDService(cc, tokens), cache, cfg.FeedIDTTL, logger)
	uploader := httpAdapter.NewFeedDataService(cc, store, tokens, httpAdapter.FeedDataConfig{
		MaxBatchBytes: cfg.MaxBatchBytes,
		PageSize:      cfg.UploadPageSize,
	})

	orch, err := app.NewOrchestrator(app.Deps{
		Settings:    settings,
		Endpoint:    holder,
		Tokens:      tokens,
		Router:      o.router,
		Credentials: creds,
		Session:     session,
		Resolver:    resolver,
		Uploader:    uploader,
		Logger:      logger,
		Observer:    observers,
	})
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	return &Feedship{
		config:    cfg,
		opts:      o,
		lifecycle: app.NewLifecycle(logger, emitter),
		orch:      orch,
		endpoint:  holder,
		settings:  settings,
		creds:     creds,
		cache:     cache,
		queue:     store,
		tokens:    tokens,
		metrics:   collector,
		logger:    logger,
		plugins:   o.plugins,
	}, nil
}

// OnApplicationLaunch runs the launch sequence and returns true so the host
// keeps launching. No failure during launch is fatal: each is logged and
// reported to the EventHandler. The first call also starts the plugins.
// Background work continues after the call returns; use Shutdown to drain it.
func (f *Feedship) OnApplicationLaunch(ctx context.Context) bool {
	f.start(ctx)
	f.orch.Run(ctx)
	return true
}

// start moves the instance to Running and initializes plugins once.
func (f *Feedship) start(ctx context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.lifecycle.CanStart() {
		return
	}
	if err := f.lifecycle.TransitionTo(app.StateStarting, "application launch"); err != nil {
		f.logger.Error("failed to start", log.Err(err))
		return
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	f.cancel = cancel

	pluginCfg := PluginConfig{
		DataDir:   f.config.DataDir,
		QueuePath: filepath.Join(f.config.DataDir, queue.DBFileName),
		Logger:    f.logger,
		Syncer:    f,
		Queue:     f,
	}
	for i, p := range f.plugins {
		if err := p.Initialize(runCtx, pluginCfg); err != nil {
			f.logger.Error("plugin initialization failed",
				log.String("plugin", p.Name()),
				log.Err(err))
			cancel()
			f.shutdownPlugins(f.plugins[:i])
			_ = f.lifecycle.TransitionTo(app.StateCrashed, "plugin init failed: "+p.Name())
			return
		}
		f.logger.Info("plugin initialized", log.String("plugin", p.Name()))
	}

	_ = f.lifecycle.TransitionTo(app.StateRunning, "launch sequence issued")
}

// Sync re-runs the session-gated sync path: feed id resolution followed by
// the category uploads. It reports whether the sync was issued.
func (f *Feedship) Sync(ctx context.Context) bool {
	return f.orch.Sync(ctx)
}

// Wait blocks until background launch and sync work has finished.
func (f *Feedship) Wait(timeout time.Duration) error {
	return f.orch.Wait(timeout)
}

// Shutdown drains background work for at most timeout (the configured
// ShutdownTimeout when zero), stops plugins in reverse order and closes the
// upload queue. Returns ErrShutdownTimeout if work was still running.
// An instance is not meant to be launched again after Shutdown.
func (f *Feedship) Shutdown(timeout time.Duration) error {
	if timeout <= 0 {
		timeout = f.config.ShutdownTimeout
	}

	f.mu.Lock()
	if !f.lifecycle.CanStop() {
		f.mu.Unlock()
		return domain.ErrNotRunning
	}
	if err := f.lifecycle.TransitionTo(app.StateStopping, "Shutdown() called"); err != nil {
		f.mu.Unlock()
		return err
	}
	if f.cancel != nil {
		f.cancel()
	}
	f.mu.Unlock()

	err := f.orch.Wait(timeout)

	f.shutdownPlugins(f.plugins)

	// Uploads may still hold the queue after a timeout.
	if err == nil {
		if closeErr := f.queue.Close(); closeErr != nil {
			f.logger.Error("failed to close upload queue", log.Err(closeErr))
		}
	}

	if err != nil {
		_ = f.lifecycle.TransitionTo(app.StateCrashed, "shutdown timeout")
	} else {
		_ = f.lifecycle.TransitionTo(app.StateStopped, "graceful shutdown")
	}
	return err
}

// shutdownPlugins stops plugins in reverse order.
func (f *Feedship) shutdownPlugins(plugins []Plugin) {
	ctx := context.Background()
	for i := len(plugins) - 1; i >= 0; i-- {
		p := plugins[i]
		if err := p.Shutdown(ctx); err != nil {
			f.logger.Error("plugin shutdown failed",
				log.String("plugin", p.Name()),
				log.Err(err))
		} else {
			f.logger.Info("plugin shutdown complete", log.String("plugin", p.Name()))
		}
	}
}

// Close releases the upload queue of an instance that is not running, such
// as one that was never launched or whose plugins failed to start.
func (f *Feedship) Close() error {
	if f.lifecycle.CanStop() {
		return domain.ErrAlreadyRunning
	}
	return f.queue.Close()
}

// Status returns the current lifecycle state.
// Safe to call concurrently from any goroutine.
func (f *Feedship) Status() State {
	return convertState(f.lifecycle.State())
}

// Endpoint returns the backend endpoint currently in use.
func (f *Feedship) Endpoint() string {
	return f.endpoint.String()
}

// SettingsInfo is a read-only view of the persisted settings.
type SettingsInfo struct {
	BaseURL       string
	RegionalCodes []RegionalCode
	IsFirstLaunch bool
	SettingsPath  string
}

// Settings returns the persisted settings.
func (f *Feedship) Settings() (SettingsInfo, error) {
	s, err := f.settings.Settings()
	if err != nil {
		return SettingsInfo{}, err
	}
	info := SettingsInfo{
		RegionalCodes: s.RegionalCodes,
		IsFirstLaunch: s.IsFirstLaunch,
		SettingsPath:  f.settings.Path(),
	}
	if s.BaseEndpoint != nil {
		info.BaseURL = s.BaseEndpoint.String()
	}
	return info, nil
}

// UseEndpoint points this instance at raw until the next launch applies the
// persisted settings. Nothing is written to disk.
func (f *Feedship) UseEndpoint(raw string) error {
	u, err := endpoint.ParseURL(raw)
	if err != nil {
		return err
	}
	f.endpoint.Set(u)
	return nil
}

// SetBaseURL persists a new backend endpoint for the next launch.
func (f *Feedship) SetBaseURL(raw string) error {
	return f.settings.SetBaseURL(raw)
}

// Login stores the refresh token of a signed-in user.
func (f *Feedship) Login(refreshToken string) error {
	if refreshToken == "" {
		return errors.New("refresh token is empty")
	}
	// An access token issued for the previous session must not outlive it.
	f.tokens.Discard()
	for _, key := range []string{domain.CredentialAccessToken, domain.CredentialAccessTokenExpiry} {
		if err := f.creds.Delete(key); err != nil {
			return err
		}
	}
	return f.creds.Set(domain.CredentialRefreshToken, refreshToken)
}

// Logout removes every stored credential.
func (f *Feedship) Logout() error {
	f.tokens.Discard()
	return f.creds.Clear()
}

// LoggedIn reports whether a session exists.
func (f *Feedship) LoggedIn() bool {
	return app.NewCredentialSession(f.creds, f.logger).IsLoggedIn()
}

// Enqueue adds a JSON record to the upload queue of category, one of
// assets, events, contacts or reminders.
func (f *Feedship) Enqueue(ctx context.Context, category string, payload json.RawMessage) (uint, error) {
	c, err := domain.ParseCategory(category)
	if err != nil {
		return 0, err
	}
	return f.queue.Enqueue(ctx, c, payload)
}

// QueueDepth returns the number of queued records per category.
func (f *Feedship) QueueDepth(ctx context.Context) (map[string]int64, error) {
	counts, err := f.queue.Count(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(counts))
	for _, c := range domain.Categories() {
		out[string(c)] = counts[c]
	}
	return out, nil
}

// QueueBytes returns the summed payload size of queued records.
func (f *Feedship) QueueBytes(ctx context.Context) (int64, error) {
	return f.queue.Bytes(ctx)
}

// TrimQueue drops the oldest queued records until at most target bytes
// remain.
func (f *Feedship) TrimQueue(ctx context.Context, target int64) (int, int64, error) {
	return f.queue.DropOldest(ctx, target)
}

// MetricsHandler serves Prometheus metrics, or nil when metrics are disabled.
func (f *Feedship) MetricsHandler() http.Handler {
	if f.metrics == nil {
		return nil
	}
	return f.metrics.Handler()
}

// Errors returned by Feedship.
var (
	ErrAlreadyRunning  = domain.ErrAlreadyRunning
	ErrNotRunning      = domain.ErrNotRunning
	ErrShutdownTimeout = domain.ErrShutdownTimeout
	ErrInvalidConfig   = domain.ErrInvalidConfig
)
