package cliconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// DefaultServiceURL is the default backend endpoint.
const DefaultServiceURL = "https://api.feedship.io"

// Config holds CLI configuration for feedship.
type Config struct {
	Home    string
	DataDir string

	Passphrase     string
	PassphraseFile string

	ServiceURL string
	APIKey     string

	HTTPTimeout   time.Duration
	DrainTimeout  time.Duration
	FeedIDTTL     time.Duration
	RateLimit     float64
	RateBurst     int
	TokenAttempts int
	MaxBatchBytes int

	Watch         bool
	MaxQueueBytes int

	LogLevel    string
	LogFormat   string
	MetricsAddr string
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Home:          DefaultHome(),
		ServiceURL:    DefaultServiceURL,
		HTTPTimeout:   30 * time.Second,
		DrainTimeout:  30 * time.Second,
		FeedIDTTL:     24 * time.Hour,
		RateBurst:     4,
		TokenAttempts: 1,
		MaxBatchBytes: 1 << 20, // 1MB
		MaxQueueBytes: 256 << 20,
		LogLevel:      "info",
		LogFormat:     "console",
		DataDir:       "", // Derived from Home during Validate
		Passphrase:    os.Getenv("FEEDSHIP_PASSPHRASE"),
	}
}

// DefaultHome returns ~/.feedship, or an empty string when the user home
// directory is unknown.
func DefaultHome() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".feedship")
	}
	return ""
}

// Validate checks the configuration for errors and sets derived defaults.
func (c *Config) Validate() error {
	if c.Home == "" && c.DataDir == "" {
		return fmt.Errorf("home is required (or data-dir)")
	}
	if c.DataDir == "" {
		c.DataDir = filepath.Join(c.Home, "data")
	}

	if c.Passphrase == "" && c.PassphraseFile != "" {
		p, err := ReadPassphrase(c.PassphraseFile)
		if err != nil {
			return err
		}
		c.Passphrase = p
	}
	if c.Passphrase == "" {
		return fmt.Errorf("passphrase is required (FEEDSHIP_PASSPHRASE or passphrase-file)")
	}

	if c.ServiceURL == "" {
		c.ServiceURL = DefaultServiceURL
	}
	c.ServiceURL = strings.TrimRight(c.ServiceURL, "/")

	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("http timeout must be positive")
	}
	if c.DrainTimeout <= 0 {
		return fmt.Errorf("drain timeout must be positive")
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("rate limit must not be negative")
	}

	if c.LogFormat == "" {
		c.LogFormat = "console"
	}
	switch c.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("log format must be console or json, got %q", c.LogFormat)
	}

	return nil
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setFloat sets a float64 value if positive and flag not changed.
func (s *configSetter) setFloat(flag string, value float64, dst *float64) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setIntFromString parses a string to int and sets the destination if valid.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}

// setFloatFromString parses a string to float64 and sets the destination if valid.
func (s *configSetter) setFloatFromString(flag, value string, dst *float64) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if f <= 0 {
		return nil
	}
	*dst = f
	return nil
}

// setBoolFromString accepts "true" and "1" as true, anything else as false.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}
