package config

import (
	"fmt"
	"strings"
	"time"
)

// Config represents the complete application configuration. Values come from
// defaults, an optional YAML file, and REPOLENS_* environment variables, in
// that order of precedence.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	GitHub  GitHubConfig  `mapstructure:"github"`
	Rate    RateConfig    `mapstructure:"rate"`
	Retry   RetryConfig   `mapstructure:"retry"`
	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Health  HealthConfig  `mapstructure:"health"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// GitHubConfig contains the upstream API settings.
type GitHubConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	Token     string        `mapstructure:"token"`
	UserAgent string        `mapstructure:"user_agent"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// RateConfig bounds the aggregate GitHub call rate across all concurrent
// tool invocations.
type RateConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// RetryConfig bounds the retry loop for transient upstream failures.
type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	BaseDelay   time.Duration `mapstructure:"base_delay"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level controls the minimum log level.
	// Valid values: trace, debug, info, warn, error
	Level string `mapstructure:"level"`

	// Profile selects the logging complexity level.
	// Valid values: SIMPLE, STRUCTURED
	Profile string `mapstructure:"profile"`
}

// MetricsConfig contains Prometheus metrics configuration.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`

	// Port is the dedicated metrics endpoint port (Prometheus format).
	Port int `mapstructure:"port"`
}

// HealthConfig contains health check configuration.
type HealthConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// Validate rejects configurations the server cannot run with.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if strings.TrimSpace(c.GitHub.BaseURL) == "" {
		return fmt.Errorf("github.base_url must not be empty")
	}
	if !strings.HasPrefix(c.GitHub.BaseURL, "http://") && !strings.HasPrefix(c.GitHub.BaseURL, "https://") {
		return fmt.Errorf("github.base_url %q must be an http(s) URL", c.GitHub.BaseURL)
	}
	if c.Rate.RequestsPerSecond <= 0 {
		return fmt.Errorf("rate.requests_per_second must be positive, got %v", c.Rate.RequestsPerSecond)
	}
	if c.Rate.Burst < 1 {
		return fmt.Errorf("rate.burst must be at least 1, got %d", c.Rate.Burst)
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be at least 1, got %d", c.Retry.MaxAttempts)
	}
	if c.Retry.BaseDelay <= 0 {
		return fmt.Errorf("retry.base_delay must be positive, got %v", c.Retry.BaseDelay)
	}
	if c.GitHub.Timeout <= 0 {
		return fmt.Errorf("github.timeout must be positive, got %v", c.GitHub.Timeout)
	}
	switch strings.ToLower(c.Logging.Level) {
	case "", "trace", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level %q not recognized", c.Logging.Level)
	}
	return nil
}
