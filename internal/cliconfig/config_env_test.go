package cliconfig

import (
	"testing"
	"time"
)

func TestApplyEnvConfig(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		changed  map[string]bool
		initial  Config
		expected Config
		wantErr  bool
	}{
		{
			name: "applies valid env vars",
			envVars: map[string]string{
				"FEEDSHIP_HOME":           "/env/home",
				"FEEDSHIP_PASSPHRASE":     "env-secret",
				"FEEDSHIP_HTTP_TIMEOUT":   "10s",
				"FEEDSHIP_RATE_LIMIT":     "0.5",
				"FEEDSHIP_TOKEN_ATTEMPTS": "3",
				"FEEDSHIP_WATCH":          "true",
			},
			changed: map[string]bool{},
			expected: Config{
				Home:          "/env/home",
				Passphrase:    "env-secret",
				HTTPTimeout:   10 * time.Second,
				RateLimit:     0.5,
				TokenAttempts: 3,
				Watch:         true,
			},
		},
		{
			name: "respects changed flags",
			envVars: map[string]string{
				"FEEDSHIP_HOME":        "/env/home",
				"FEEDSHIP_SERVICE_URL": "http://env.example.com",
			},
			changed: map[string]bool{"home": true},
			initial: Config{Home: "/flag/home"},
			expected: Config{
				Home:       "/flag/home",
				ServiceURL: "http://env.example.com",
			},
		},
		{
			name:    "returns error for invalid duration",
			envVars: map[string]string{"FEEDSHIP_DRAIN_TIMEOUT": "soon"},
			changed: map[string]bool{},
			wantErr: true,
		},
		{
			name:    "returns error for invalid int",
			envVars: map[string]string{"FEEDSHIP_RATE_BURST": "many"},
			changed: map[string]bool{},
			wantErr: true,
		},
		{
			name:    "returns error for invalid float",
			envVars: map[string]string{"FEEDSHIP_RATE_LIMIT": "fast"},
			changed: map[string]bool{},
			wantErr: true,
		},
		{
			name:     "handles bool '1' as true",
			envVars:  map[string]string{"FEEDSHIP_WATCH": "1"},
			changed:  map[string]bool{},
			expected: Config{Watch: true},
		},
		{
			name:     "handles bool 'false' as false",
			envVars:  map[string]string{"FEEDSHIP_WATCH": "false"},
			changed:  map[string]bool{},
			initial:  Config{Watch: true},
			expected: Config{Watch: false},
		},
		{
			name: "handles all field types correctly",
			envVars: map[string]string{
				"FEEDSHIP_HOME":            "/home",
				"FEEDSHIP_DATA_DIR":        "/data",
				"FEEDSHIP_PASSPHRASE":      "secret",
				"FEEDSHIP_PASSPHRASE_FILE": "/pass",
				"FEEDSHIP_SERVICE_URL":     "http://example.com",
				"FEEDSHIP_API_KEY":         "key",
				"FEEDSHIP_HTTP_TIMEOUT":    "30s",
				"FEEDSHIP_DRAIN_TIMEOUT":   "1m",
				"FEEDSHIP_FEED_ID_TTL":     "3h",
				"FEEDSHIP_RATE_LIMIT":      "2",
				"FEEDSHIP_RATE_BURST":      "6",
				"FEEDSHIP_TOKEN_ATTEMPTS":  "4",
				"FEEDSHIP_MAX_BATCH_BYTES": "2048",
				"FEEDSHIP_MAX_QUEUE_BYTES": "8192",
				"FEEDSHIP_WATCH":           "1",
				"FEEDSHIP_LOG_LEVEL":       "warn",
				"FEEDSHIP_LOG_FORMAT":      "json",
				"FEEDSHIP_METRICS_ADDR":    "127.0.0.1:9100",
			},
			changed: map[string]bool{},
			expected: Config{
				Home:           "/home",
				DataDir:        "/data",
				Passphrase:     "secret",
				PassphraseFile: "/pass",
				ServiceURL:     "http://example.com",
				APIKey:         "key",
				HTTPTimeout:    30 * time.Second,
				DrainTimeout:   time.Minute,
				FeedIDTTL:      3 * time.Hour,
				RateLimit:      2,
				RateBurst:      6,
				TokenAttempts:  4,
				MaxBatchBytes:  2048,
				MaxQueueBytes:  8192,
				Watch:          true,
				LogLevel:       "warn",
				LogFormat:      "json",
				MetricsAddr:    "127.0.0.1:9100",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			cfg := tt.initial
			err := ApplyEnvConfig(&cfg, tt.changed)

			if tt.wantErr && err == nil {
				t.Error("ApplyEnvConfig() expected error but got nil")
				return
			}
			if !tt.wantErr && err != nil {
				t.Errorf("ApplyEnvConfig() unexpected error: %v", err)
				return
			}

			if !tt.wantErr && cfg != tt.expected {
				t.Errorf("ApplyEnvConfig() = %+v, want %+v", cfg, tt.expected)
			}
		})
	}
}

// Integration test: precedence order (CLI > Env > File)
func TestConfigPrecedence(t *testing.T) {
	trueVal := true

	fileConf := FileConfig{
		Home:       "/file/home",
		ServiceURL: "http://file.example.com",
		APIKey:     "file-key",
		Watch:      &trueVal,
	}

	t.Setenv("FEEDSHIP_HOME", "/env/home")
	t.Setenv("FEEDSHIP_SERVICE_URL", "http://env.example.com")
	t.Setenv("FEEDSHIP_DATA_DIR", "/env/data")

	changed := map[string]bool{
		"home": true,
	}

	cfg := Config{
		Home: "/cli/home",
	}

	if err := ApplyFileConfig(&cfg, fileConf, changed); err != nil {
		t.Fatalf("ApplyFileConfig failed: %v", err)
	}
	if err := ApplyEnvConfig(&cfg, changed); err != nil {
		t.Fatalf("ApplyEnvConfig failed: %v", err)
	}

	if cfg.Home != "/cli/home" {
		t.Errorf("Home = %v, want /cli/home (CLI should win)", cfg.Home)
	}
	if cfg.ServiceURL != "http://env.example.com" {
		t.Errorf("ServiceURL = %v, want env value (env should override file)", cfg.ServiceURL)
	}
	if cfg.DataDir != "/env/data" {
		t.Errorf("DataDir = %v, want /env/data (env should set)", cfg.DataDir)
	}
	if cfg.APIKey != "file-key" {
		t.Errorf("APIKey = %v, want file-key (file should set)", cfg.APIKey)
	}
	if !cfg.Watch {
		t.Error("Watch = false, want true (file should set)")
	}
}
