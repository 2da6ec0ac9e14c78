package cliconfig

import "os"

// ApplyEnvConfig applies configuration from environment variables (FEEDSHIP_*).
// It respects flags that have been explicitly set (changed map).
// Returns error if any environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("home", os.Getenv("FEEDSHIP_HOME"), &cfg.Home)
	s.setString("data-dir", os.Getenv("FEEDSHIP_DATA_DIR"), &cfg.DataDir)
	s.setString("passphrase", os.Getenv("FEEDSHIP_PASSPHRASE"), &cfg.Passphrase)
	s.setString("passphrase-file", os.Getenv("FEEDSHIP_PASSPHRASE_FILE"), &cfg.PassphraseFile)
	s.setString("service-url", os.Getenv("FEEDSHIP_SERVICE_URL"), &cfg.ServiceURL)
	s.setString("api-key", os.Getenv("FEEDSHIP_API_KEY"), &cfg.APIKey)
	s.setString("log-level", os.Getenv("FEEDSHIP_LOG_LEVEL"), &cfg.LogLevel)
	s.setString("log-format", os.Getenv("FEEDSHIP_LOG_FORMAT"), &cfg.LogFormat)
	s.setString("metrics-addr", os.Getenv("FEEDSHIP_METRICS_ADDR"), &cfg.MetricsAddr)

	if err := s.setDuration("timeout", os.Getenv("FEEDSHIP_HTTP_TIMEOUT"), &cfg.HTTPTimeout); err != nil {
		return err
	}
	if err := s.setDuration("drain-timeout", os.Getenv("FEEDSHIP_DRAIN_TIMEOUT"), &cfg.DrainTimeout); err != nil {
		return err
	}
	if err := s.setDuration("feed-id-ttl", os.Getenv("FEEDSHIP_FEED_ID_TTL"), &cfg.FeedIDTTL); err != nil {
		return err
	}

	if err := s.setFloatFromString("rate-limit", os.Getenv("FEEDSHIP_RATE_LIMIT"), &cfg.RateLimit); err != nil {
		return err
	}

	if err := s.setIntFromString("rate-burst", os.Getenv("FEEDSHIP_RATE_BURST"), &cfg.RateBurst); err != nil {
		return err
	}
	if err := s.setIntFromString("token-attempts", os.Getenv("FEEDSHIP_TOKEN_ATTEMPTS"), &cfg.TokenAttempts); err != nil {
		return err
	}
	if err := s.setIntFromString("max-batch-bytes", os.Getenv("FEEDSHIP_MAX_BATCH_BYTES"), &cfg.MaxBatchBytes); err != nil {
		return err
	}
	if err := s.setIntFromString("max-queue-bytes", os.Getenv("FEEDSHIP_MAX_QUEUE_BYTES"), &cfg.MaxQueueBytes); err != nil {
		return err
	}

	s.setBoolFromString("watch", os.Getenv("FEEDSHIP_WATCH"), &cfg.Watch)

	return nil
}
