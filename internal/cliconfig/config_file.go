package cliconfig

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	Home           string  `toml:"home"`
	DataDir        string  `toml:"data_dir"`
	PassphraseFile string  `toml:"passphrase_file"`
	ServiceURL     string  `toml:"service_url"`
	APIKey         string  `toml:"api_key"`
	HTTPTimeout    string  `toml:"http_timeout"`
	DrainTimeout   string  `toml:"drain_timeout"`
	FeedIDTTL      string  `toml:"feed_id_ttl"`
	RateLimit      float64 `toml:"rate_limit"`
	RateBurst      int     `toml:"rate_burst"`
	TokenAttempts  int     `toml:"token_attempts"`
	MaxBatchBytes  int     `toml:"max_batch_bytes"`
	MaxQueueBytes  int     `toml:"max_queue_bytes"`
	Watch          *bool   `toml:"watch"`
	LogLevel       string  `toml:"log_level"`
	LogFormat      string  `toml:"log_format"`
	MetricsAddr    string  `toml:"metrics_addr"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns ~/.feedship/config.toml, or an empty string when
// the user home directory is unknown.
func DefaultConfigPath() string {
	if h := DefaultHome(); h != "" {
		return filepath.Join(h, "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("home", fc.Home, &cfg.Home)
	s.setString("data-dir", fc.DataDir, &cfg.DataDir)
	s.setString("passphrase-file", fc.PassphraseFile, &cfg.PassphraseFile)
	s.setString("service-url", fc.ServiceURL, &cfg.ServiceURL)
	s.setString("api-key", fc.APIKey, &cfg.APIKey)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)
	s.setString("log-format", fc.LogFormat, &cfg.LogFormat)
	s.setString("metrics-addr", fc.MetricsAddr, &cfg.MetricsAddr)

	if err := s.setDuration("timeout", fc.HTTPTimeout, &cfg.HTTPTimeout); err != nil {
		return err
	}
	if err := s.setDuration("drain-timeout", fc.DrainTimeout, &cfg.DrainTimeout); err != nil {
		return err
	}
	if err := s.setDuration("feed-id-ttl", fc.FeedIDTTL, &cfg.FeedIDTTL); err != nil {
		return err
	}

	s.setFloat("rate-limit", fc.RateLimit, &cfg.RateLimit)

	s.setInt("rate-burst", fc.RateBurst, &cfg.RateBurst)
	s.setInt("token-attempts", fc.TokenAttempts, &cfg.TokenAttempts)
	s.setInt("max-batch-bytes", fc.MaxBatchBytes, &cfg.MaxBatchBytes)
	s.setInt("max-queue-bytes", fc.MaxQueueBytes, &cfg.MaxQueueBytes)

	s.setBool("watch", fc.Watch, &cfg.Watch)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
