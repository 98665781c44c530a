// Package config provides centralized configuration management. Values merge
// in three layers: built-in defaults, an optional YAML config file, and
// REPOLENS_* environment variables (highest precedence). GITHUB_TOKEN is also
// honored for the upstream token since that is what the GitHub ecosystem
// expects.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

var (
	appConfig *Config
	configMu  sync.RWMutex
)

// EnvPrefix is the prefix for configuration environment variables, e.g.
// REPOLENS_SERVER_PORT maps to server.port.
const EnvPrefix = "REPOLENS"

// SetDefaults installs the built-in defaults on the given viper instance.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("github.base_url", "https://api.github.com")
	v.SetDefault("github.token", "")
	v.SetDefault("github.user_agent", "RepoLens/1.0")
	v.SetDefault("github.timeout", "20s")

	v.SetDefault("rate.requests_per_second", 1.0)
	v.SetDefault("rate.burst", 1)

	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.base_delay", "1s")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.profile", "STRUCTURED")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)

	v.SetDefault("health.enabled", true)
}

// Load reads configuration from the optional config file path and the
// environment, validates it, and stores it as the process config.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", configFile, err)
		}
	} else {
		v.SetConfigName("repolens")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(dir + "/repolens")
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	cfg := &Config{}
	decodeHook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(cfg, decodeHook); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// The conventional token variable wins only when no explicit token was
	// configured.
	if strings.TrimSpace(cfg.GitHub.Token) == "" {
		cfg.GitHub.Token = strings.TrimSpace(os.Getenv("GITHUB_TOKEN"))
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	setConfig(cfg)
	return cfg, nil
}

// GetConfig returns the current application configuration (thread-safe).
func GetConfig() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return appConfig
}

func setConfig(cfg *Config) {
	configMu.Lock()
	defer configMu.Unlock()
	appConfig = cfg
}
