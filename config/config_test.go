package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/ohlcv/bybit"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.NotNil(t, cfg)
	assert.Equal(t, bybit.KlineURL, cfg.Bybit.BaseURL)
	assert.Equal(t, "10s", cfg.Bybit.Timeout)
	assert.Equal(t, 5000, cfg.Bybit.Limit)
	assert.Equal(t, 1, cfg.Retry.MaxAttempts)
	assert.Equal(t, "none", cfg.Journal.Type)
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	with := func(mod func(c *Config)) *Config {
		c := Default()
		mod(c)
		return c
	}

	tests := []struct {
		name    string
		config  *Config
		wantErr bool
		errMsg  string
	}{
		{
			name:    "valid config",
			config:  Default(),
			wantErr: false,
		},
		{
			name:    "missing base url",
			config:  with(func(c *Config) { c.Bybit.BaseURL = "" }),
			wantErr: true,
			errMsg:  "bybit.base_url is required",
		},
		{
			name:    "bad timeout",
			config:  with(func(c *Config) { c.Bybit.Timeout = "ten seconds" }),
			wantErr: true,
			errMsg:  "bybit.timeout",
		},
		{
			name:    "zero timeout",
			config:  with(func(c *Config) { c.Bybit.Timeout = "0s" }),
			wantErr: true,
			errMsg:  "bybit.timeout must be positive",
		},
		{
			name:    "negative limit",
			config:  with(func(c *Config) { c.Bybit.Limit = -1 }),
			wantErr: true,
			errMsg:  "bybit.limit must not be negative",
		},
		{
			name:    "limit above upstream cap is allowed",
			config:  with(func(c *Config) { c.Bybit.Limit = 100000 }),
			wantErr: false,
		},
		{
			name:    "jitter out of range",
			config:  with(func(c *Config) { c.Retry.Jitter = 1.5 }),
			wantErr: true,
			errMsg:  "retry.jitter must be between 0 and 1",
		},
		{
			name:    "bad base delay",
			config:  with(func(c *Config) { c.Retry.BaseDelay = "soon" }),
			wantErr: true,
			errMsg:  "retry.base_delay",
		},
		{
			name:    "negative rate",
			config:  with(func(c *Config) { c.Retry.RequestsPerSecond = -2 }),
			wantErr: true,
			errMsg:  "retry.requests_per_second must not be negative",
		},
		{
			name:    "unknown journal type",
			config:  with(func(c *Config) { c.Journal.Type = "postgres" }),
			wantErr: true,
			errMsg:  "journal.type must be",
		},
		{
			name:    "csv without file",
			config:  with(func(c *Config) { c.Journal.Type = "csv" }),
			wantErr: true,
			errMsg:  "journal csv_file required",
		},
		{
			name:    "sqlite without path",
			config:  with(func(c *Config) { c.Journal.Type = "sqlite" }),
			wantErr: true,
			errMsg:  "journal db_path required",
		},
		{
			name:    "bad log level",
			config:  with(func(c *Config) { c.Log.Level = "loud" }),
			wantErr: true,
			errMsg:  "log.level",
		},
		{
			name:    "bad log format",
			config:  with(func(c *Config) { c.Log.Format = "xml" }),
			wantErr: true,
			errMsg:  "log.format must be",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				require.Error(t, err)
				if tt.errMsg != "" {
					assert.Contains(t, err.Error(), tt.errMsg)
				}
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSaveAndLoad(t *testing.T) {
	tmpDir := t.TempDir()

	tests := []struct {
		name string
		ext  string
	}{
		{"json format", ".json"},
		{"yaml format", ".yaml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Journal = JournalConfig{Type: "sqlite", DBPath: "./ohlcv.sqlite"}
			cfg.Retry.MaxAttempts = 3
			path := filepath.Join(tmpDir, "test"+tt.ext)

			err := cfg.SaveToFile(path)
			require.NoError(t, err)

			_, err = os.Stat(path)
			require.NoError(t, err)

			loaded, err := LoadFromFile(path)
			require.NoError(t, err)

			assert.Equal(t, cfg, loaded)
		})
	}
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	require.NoError(t, os.WriteFile(path, []byte("bybit:\n  timeout: 3s\nlog:\n  level: debug\n"), 0644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, bybit.KlineURL, cfg.Bybit.BaseURL)
	assert.Equal(t, "3s", cfg.Bybit.Timeout)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 1, cfg.Retry.MaxAttempts)
}

func TestLoadInvalidFile(t *testing.T) {
	_, err := LoadFromFile("/nonexistent/path.yaml")
	assert.Error(t, err)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("journal:\n  type: sqlite\n"), 0644))

	_, err := LoadFromFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
}

func TestParseTimeout(t *testing.T) {
	tests := []struct {
		timeout  string
		expected time.Duration
		wantErr  bool
	}{
		{"10s", 10 * time.Second, false},
		{"1m", time.Minute, false},
		{"", bybit.DefaultTimeout, false},
		{"invalid", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.timeout, func(t *testing.T) {
			d, err := BybitConfig{Timeout: tt.timeout}.ParseTimeout()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.expected, d)
			}
		})
	}
}

func TestRetryPolicy(t *testing.T) {
	p, err := RetryConfig{
		MaxAttempts:       4,
		BaseDelay:         "250ms",
		MaxDelay:          "2s",
		Multiplier:        3,
		Jitter:            0.2,
		RequestsPerSecond: 5,
		Burst:             2,
	}.Policy()
	require.NoError(t, err)
	assert.Equal(t, 4, p.MaxAttempts)
	assert.Equal(t, 250*time.Millisecond, p.BaseDelay)
	assert.Equal(t, 2*time.Second, p.MaxDelay)
	assert.Equal(t, 3.0, p.Multiplier)
	assert.Equal(t, 0.2, p.JitterRange)
	assert.Equal(t, 5.0, p.RequestsPerSecond)
	assert.Equal(t, 2, p.Burst)

	_, err = RetryConfig{MaxDelay: "forever"}.Policy()
	assert.Error(t, err)
}
