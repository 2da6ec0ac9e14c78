package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/bft-labs/feedship/internal/cliconfig"
	"github.com/bft-labs/feedship/pkg/feedship"
	"github.com/bft-labs/feedship/pkg/log"
	"github.com/bft-labs/feedship/plugins/queuecleanup"
	"github.com/bft-labs/feedship/plugins/queuewatcher"
)

const helpDescription = `
Bootstrap a client session and ship locally queued data to the backend.

On every run feedship applies the persisted endpoint, refreshes the access
token in the background, clears stale credentials on a first launch and, when
a session exists, resolves the feed id and uploads queued assets, events,
contacts and reminders in parallel.

Configure via file ($HOME/.feedship/config.toml), env (FEEDSHIP_*), or flags.
`

var exampleUsage = strings.TrimSpace(`
  FEEDSHIP_PASSPHRASE=... feedship login < refresh-token.txt
  feedship enqueue events '{"title":"standup","at":"2026-10-19T09:00:00Z"}'
  feedship --watch --metrics-addr 127.0.0.1:9464
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

// cli carries the configuration shared by every command.
type cli struct {
	cfg     cliconfig.Config
	cfgPath string
	logger  zerolog.Logger
}

func main() {
	c := &cli{
		cfg:    cliconfig.DefaultConfig(),
		logger: log.NewConsoleLogger(os.Stderr),
	}

	root := &cobra.Command{
		Use:               "feedship",
		Short:             "Bootstrap a client session and ship queued data to the backend",
		Long:              strings.TrimSpace(helpDescription),
		Example:           exampleUsage,
		Version:           fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.load,
		RunE:              c.runLaunch,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&c.cfgPath, "config", "", "path to config file (default: $HOME/.feedship/config.toml)")
	pf.StringVar(&c.cfg.Home, "home", c.cfg.Home, "feedship home directory")
	pf.StringVar(&c.cfg.DataDir, "data-dir", c.cfg.DataDir, "data directory (defaults to <home>/data)")
	pf.StringVar(&c.cfg.PassphraseFile, "passphrase-file", c.cfg.PassphraseFile, "file holding the credential passphrase (or FEEDSHIP_PASSPHRASE)")
	pf.StringVar(&c.cfg.ServiceURL, "service-url", c.cfg.ServiceURL, "default backend URL, used until settings name one")
	pf.StringVar(&c.cfg.APIKey, "api-key", c.cfg.APIKey, "API key sent as x-api-key")
	pf.DurationVar(&c.cfg.HTTPTimeout, "timeout", c.cfg.HTTPTimeout, "HTTP timeout")
	pf.DurationVar(&c.cfg.DrainTimeout, "drain-timeout", c.cfg.DrainTimeout, "how long to wait for background work before exiting")
	pf.DurationVar(&c.cfg.FeedIDTTL, "feed-id-ttl", c.cfg.FeedIDTTL, "how long a cached feed id stays valid")
	pf.Float64Var(&c.cfg.RateLimit, "rate-limit", c.cfg.RateLimit, "max requests per second (0 disables)")
	pf.IntVar(&c.cfg.RateBurst, "rate-burst", c.cfg.RateBurst, "request burst allowed by the rate limit")
	pf.IntVar(&c.cfg.TokenAttempts, "token-attempts", c.cfg.TokenAttempts, "attempts per token refresh")
	pf.IntVar(&c.cfg.MaxBatchBytes, "max-batch-bytes", c.cfg.MaxBatchBytes, "maximum payload bytes per upload request")
	pf.StringVar(&c.cfg.LogLevel, "log-level", c.cfg.LogLevel, "log level (debug, info, warn, error)")
	pf.StringVar(&c.cfg.LogFormat, "log-format", c.cfg.LogFormat, "log format (console or json)")

	root.Flags().BoolVar(&c.cfg.Watch, "watch", c.cfg.Watch, "keep running and sync whenever data is queued")
	root.Flags().IntVar(&c.cfg.MaxQueueBytes, "max-queue-bytes", c.cfg.MaxQueueBytes, "drop the oldest queued data above this size while watching")
	root.Flags().StringVar(&c.cfg.MetricsAddr, "metrics-addr", c.cfg.MetricsAddr, "serve Prometheus metrics on this address")

	root.AddCommand(
		c.settingsCmd(),
		c.syncCmd(),
		c.enqueueCmd(),
		c.queueCmd(),
		c.loginCmd(),
		c.logoutCmd(),
	)

	if err := root.Execute(); err != nil {
		c.logger.Error().Err(err).Msg("feedship")
		os.Exit(1)
	}
}

// load resolves configuration with precedence flags > env > file.
func (c *cli) load(cmd *cobra.Command, args []string) error {
	cfgFile := c.cfgPath
	if cfgFile == "" {
		cfgFile = cliconfig.DefaultConfigPath()
	}

	changed := map[string]bool{}
	cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

	if cfgFile != "" && cliconfig.FileExists(cfgFile) {
		fc, err := cliconfig.LoadFileConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := cliconfig.ApplyFileConfig(&c.cfg, fc, changed); err != nil {
			return err
		}
	}

	if err := cliconfig.ApplyEnvConfig(&c.cfg, changed); err != nil {
		return err
	}

	if err := c.cfg.Validate(); err != nil {
		return err
	}

	logger, err := log.New(os.Stderr, c.cfg.LogFormat, c.cfg.LogLevel)
	if err != nil {
		return err
	}
	c.logger = logger

	logCfg := c.cfg
	logCfg.Passphrase = mask(logCfg.Passphrase)
	logCfg.APIKey = mask(logCfg.APIKey)
	c.logger.Debug().Interface("config", logCfg).Msg("configuration")
	return nil
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	return "*****"
}

// open builds a Feedship instance from the resolved configuration.
func (c *cli) open(opts ...feedship.Option) (*feedship.Feedship, error) {
	libCfg := feedship.DefaultConfig()
	libCfg.DataDir = c.cfg.DataDir
	libCfg.Passphrase = c.cfg.Passphrase
	libCfg.ServiceURL = c.cfg.ServiceURL
	libCfg.APIKey = c.cfg.APIKey
	libCfg.UserAgent = "feedship/" + getVersion()
	libCfg.HTTPTimeout = c.cfg.HTTPTimeout
	libCfg.RequestsPerSecond = c.cfg.RateLimit
	libCfg.RequestBurst = c.cfg.RateBurst
	libCfg.TokenAttempts = c.cfg.TokenAttempts
	libCfg.FeedIDTTL = c.cfg.FeedIDTTL
	libCfg.MaxBatchBytes = c.cfg.MaxBatchBytes
	libCfg.ShutdownTimeout = c.cfg.DrainTimeout

	if err := os.MkdirAll(libCfg.DataDir, 0o700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	opts = append([]feedship.Option{
		feedship.WithLogger(log.NewZerologAdapterWithLogger(c.logger)),
	}, opts...)

	f, err := feedship.New(libCfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("create feedship: %w", err)
	}
	return f, nil
}

func (c *cli) runLaunch(cmd *cobra.Command, args []string) error {
	var opts []feedship.Option
	if c.cfg.MetricsAddr != "" {
		opts = append(opts, feedship.WithMetrics(""))
	}
	if c.cfg.Watch {
		opts = append(opts,
			queuewatcher.WithDefaultQueueWatcher(),
			queuecleanup.WithQueueCleanup(queuecleanup.Config{
				CheckInterval:  time.Hour,
				HighWatermark:  int64(c.cfg.MaxQueueBytes),
				LowWatermark:   int64(c.cfg.MaxQueueBytes) / 4 * 3,
				RunImmediately: true,
			}),
		)
	}

	f, err := c.open(opts...)
	if err != nil {
		return err
	}

	var srv *http.Server
	if c.cfg.MetricsAddr != "" {
		srv = &http.Server{
			Addr:              c.cfg.MetricsAddr,
			Handler:           f.MetricsHandler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				c.logger.Error().Err(err).Str("addr", c.cfg.MetricsAddr).Msg("metrics server failed")
			}
		}()
		c.logger.Info().Str("addr", c.cfg.MetricsAddr).Msg("serving metrics")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	f.OnApplicationLaunch(ctx)

	if c.cfg.Watch {
		c.logger.Info().Msg("watching upload queue, press Ctrl+C to stop")
		<-ctx.Done()
		c.logger.Info().Msg("received signal, stopping...")
	}

	shutdownErr := f.Shutdown(c.cfg.DrainTimeout)
	if errors.Is(shutdownErr, feedship.ErrNotRunning) {
		// plugins failed to start; the launch itself still ran
		c.logger.Error().Str("status", f.Status().String()).Msg("feedship crashed")
		shutdownErr = f.Wait(c.cfg.DrainTimeout)
		if shutdownErr == nil {
			shutdownErr = f.Close()
		}
	}

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			c.logger.Warn().Err(err).Msg("metrics server shutdown")
		}
	}

	if shutdownErr != nil {
		return fmt.Errorf("drain background work: %w", shutdownErr)
	}
	return nil
}
