// Package config loads and validates the klexport configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the main configuration structure.
type Config struct {
	API       APIConfig       `yaml:"api"`
	Export    ExportConfig    `yaml:"export"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Logging   LoggingConfig   `yaml:"logging"`
	Status    StatusConfig    `yaml:"status"`
	RunLog    RunLogConfig    `yaml:"run_log"`
}

// APIConfig contains Klaviyo API settings.
type APIConfig struct {
	BaseURL  string        `yaml:"base_url"`
	APIKey   string        `yaml:"api_key"` // falls back to KLAVIYO_API_KEY
	Revision string        `yaml:"revision"`
	Timeout  time.Duration `yaml:"timeout"`
}

// ExportConfig contains harvest and output settings. MonthsBack bounds the
// harvest window; StatsTimeframe is the report endpoint's own window and is
// configured independently, not derived from MonthsBack.
type ExportConfig struct {
	MonthsBack     int    `yaml:"months_back"`
	StatsTimeframe string `yaml:"stats_timeframe"`
	Output         string `yaml:"output"`
}

// RateLimitConfig contains client-side pacing and retry settings.
type RateLimitConfig struct {
	StatsInterval time.Duration `yaml:"stats_interval"` // min delay between stats calls
	PageDelay     time.Duration `yaml:"page_delay"`     // courtesy delay between listing pages
	MaxRetries    int           `yaml:"max_retries"`    // rate-limit retries per stats call
	BackoffBase   time.Duration `yaml:"backoff_base"`   // first retry delay
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// StatusConfig contains the status/metrics HTTP server settings.
type StatusConfig struct {
	Enabled    bool   `yaml:"enabled"`
	ListenAddr string `yaml:"listen_addr"` // default :9090
}

// RunLogConfig contains run history settings.
type RunLogConfig struct {
	Path string `yaml:"path"` // bolt database file; empty disables history
}

// Load loads configuration from a YAML file. An empty path yields the
// defaults with only the environment applied.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setDefaults sets default values for configuration.
func (c *Config) setDefaults() {
	if c.API.BaseURL == "" {
		c.API.BaseURL = "https://a.klaviyo.com/api"
	}
	if c.API.APIKey == "" {
		c.API.APIKey = os.Getenv("KLAVIYO_API_KEY")
	}
	if c.API.Revision == "" {
		c.API.Revision = "2024-10-15"
	}
	if c.API.Timeout == 0 {
		c.API.Timeout = 30 * time.Second
	}

	if c.Export.MonthsBack == 0 {
		c.Export.MonthsBack = 6
	}
	if c.Export.StatsTimeframe == "" {
		c.Export.StatsTimeframe = "last_6_months"
	}
	if c.Export.Output == "" {
		c.Export.Output = "klaviyo_campaigns_export.csv"
	}

	if c.RateLimit.StatsInterval == 0 {
		c.RateLimit.StatsInterval = 500 * time.Millisecond
	}
	if c.RateLimit.PageDelay == 0 {
		c.RateLimit.PageDelay = 100 * time.Millisecond
	}
	if c.RateLimit.MaxRetries == 0 {
		c.RateLimit.MaxRetries = 3
	}
	if c.RateLimit.BackoffBase == 0 {
		c.RateLimit.BackoffBase = 2 * time.Second
	}

	if c.Status.ListenAddr == "" {
		c.Status.ListenAddr = ":9090"
	}
}

// Validate checks the configuration for problems that would break a run.
func (c *Config) Validate() error {
	if c.API.APIKey == "" {
		return fmt.Errorf("api.api_key is required (or set KLAVIYO_API_KEY)")
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("api.timeout must be positive")
	}
	if c.Export.MonthsBack < 0 {
		return fmt.Errorf("export.months_back must not be negative")
	}
	if c.RateLimit.MaxRetries < 0 {
		return fmt.Errorf("rate_limit.max_retries must not be negative")
	}

	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	switch c.Logging.Format {
	case "", "json", "text":
	default:
		return fmt.Errorf("logging.format must be json or text")
	}

	return nil
}

// Cutoff returns the inclusive lower bound of the harvest window, counting
// MonthsBack blocks of 30 days back from now.
func (c *Config) Cutoff(now time.Time) time.Time {
	return now.AddDate(0, 0, -30*c.Export.MonthsBack)
}
