package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/ohlcv/bybit"
	"github.com/rustyeddy/ohlcv/retry"
)

// Config represents the complete loader configuration
type Config struct {
	Bybit   BybitConfig   `json:"bybit" yaml:"bybit"`
	Retry   RetryConfig   `json:"retry" yaml:"retry"`
	Journal JournalConfig `json:"journal" yaml:"journal"`
	Log     LogConfig     `json:"log" yaml:"log"`
}

// BybitConfig contains the kline endpoint parameters
type BybitConfig struct {
	BaseURL string `json:"base_url" yaml:"base_url"`
	Timeout string `json:"timeout" yaml:"timeout"` // e.g., "10s"
	Limit   int    `json:"limit" yaml:"limit"`
}

// RetryConfig contains the retry and rate-limit policy
type RetryConfig struct {
	MaxAttempts       int     `json:"max_attempts" yaml:"max_attempts"`
	BaseDelay         string  `json:"base_delay" yaml:"base_delay"`
	MaxDelay          string  `json:"max_delay" yaml:"max_delay"`
	Multiplier        float64 `json:"multiplier" yaml:"multiplier"`
	Jitter            float64 `json:"jitter" yaml:"jitter"`
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second"`
	Burst             int     `json:"burst" yaml:"burst"`
}

// JournalConfig contains fetch journaling parameters
type JournalConfig struct {
	Type    string `json:"type" yaml:"type"` // "none", "csv" or "sqlite"
	CSVFile string `json:"csv_file,omitempty" yaml:"csv_file,omitempty"`
	DBPath  string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
}

// LogConfig contains logging parameters
type LogConfig struct {
	Level  string `json:"level" yaml:"level"`   // debug|info|warn|error
	Format string `json:"format" yaml:"format"` // text|json
}

// ParseTimeout converts the timeout string to time.Duration
func (b BybitConfig) ParseTimeout() (time.Duration, error) {
	if b.Timeout == "" {
		return bybit.DefaultTimeout, nil
	}
	return time.ParseDuration(b.Timeout)
}

// Policy converts the retry section into a retry.Config
func (r RetryConfig) Policy() (retry.Config, error) {
	p := retry.DefaultConfig()
	if r.MaxAttempts > 0 {
		p.MaxAttempts = r.MaxAttempts
	}
	if r.BaseDelay != "" {
		d, err := time.ParseDuration(r.BaseDelay)
		if err != nil {
			return p, fmt.Errorf("retry.base_delay: %w", err)
		}
		p.BaseDelay = d
	}
	if r.MaxDelay != "" {
		d, err := time.ParseDuration(r.MaxDelay)
		if err != nil {
			return p, fmt.Errorf("retry.max_delay: %w", err)
		}
		p.MaxDelay = d
	}
	if r.Multiplier > 0 {
		p.Multiplier = r.Multiplier
	}
	p.JitterRange = r.Jitter
	p.RequestsPerSecond = r.RequestsPerSecond
	if r.Burst > 0 {
		p.Burst = r.Burst
	}
	return p, nil
}

// LoadFromFile loads configuration from a file (JSON or YAML based on extension)
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		cfg = Default()
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension)
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Bybit.BaseURL == "" {
		return fmt.Errorf("bybit.base_url is required")
	}
	d, err := c.Bybit.ParseTimeout()
	if err != nil {
		return fmt.Errorf("bybit.timeout: %w", err)
	}
	if d <= 0 {
		return fmt.Errorf("bybit.timeout must be positive")
	}
	if c.Bybit.Limit < 0 {
		return fmt.Errorf("bybit.limit must not be negative")
	}

	if c.Retry.MaxAttempts < 0 {
		return fmt.Errorf("retry.max_attempts must not be negative")
	}
	if c.Retry.Jitter < 0 || c.Retry.Jitter > 1 {
		return fmt.Errorf("retry.jitter must be between 0 and 1")
	}
	if c.Retry.RequestsPerSecond < 0 {
		return fmt.Errorf("retry.requests_per_second must not be negative")
	}
	if _, err := c.Retry.Policy(); err != nil {
		return err
	}

	switch c.Journal.Type {
	case "", "none":
	case "csv":
		if c.Journal.CSVFile == "" {
			return fmt.Errorf("journal csv_file required for CSV type")
		}
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal db_path required for SQLite type")
		}
	default:
		return fmt.Errorf("journal.type must be 'none', 'csv' or 'sqlite'")
	}

	if c.Log.Level != "" {
		if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
			return fmt.Errorf("log.level: %w", err)
		}
	}
	if c.Log.Format != "" && c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("log.format must be 'text' or 'json'")
	}
	return nil
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Bybit: BybitConfig{
			BaseURL: bybit.KlineURL,
			Timeout: bybit.DefaultTimeout.String(),
			Limit:   bybit.DefaultLimit,
		},
		Retry: RetryConfig{
			MaxAttempts: 1,
			BaseDelay:   "500ms",
			MaxDelay:    "10s",
			Multiplier:  2,
			Jitter:      0.1,
			Burst:       1,
		},
		Journal: JournalConfig{
			Type: "none",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
