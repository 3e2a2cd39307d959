// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all service configuration.
type Config struct {
	Spool     SpoolConfig
	Storage   StorageConfig
	Provider  ProviderConfig
	Detection DetectionConfig
	Logging   LogConfig
	Analytics AnalyticsConfig
}

// SpoolConfig locates the capture agent's drop directory.
type SpoolConfig struct {
	Dir string `envconfig:"SCRIBE_SPOOL_DIR"`
}

// StorageConfig holds persistence configuration.
type StorageConfig struct {
	DatabasePath string `envconfig:"SCRIBE_DB_PATH"`
	SecretsDir   string `envconfig:"SCRIBE_SECRETS_DIR"`
}

// ProviderConfig selects and tunes the vision model backend.
type ProviderConfig struct {
	// Kind is "anthropic", "openai", or "none".
	Kind          string        `envconfig:"SCRIBE_PROVIDER" default:"anthropic"`
	Model         string        `envconfig:"SCRIBE_MODEL"`
	Timeout       time.Duration `envconfig:"SCRIBE_PROVIDER_TIMEOUT" default:"30s"`
	CacheCapacity int           `envconfig:"SCRIBE_CACHE_CAPACITY" default:"256"`
}

// DetectionConfig tunes boundary detection. Zero values fall back to the
// engine defaults.
type DetectionConfig struct {
	MinTaskDuration   time.Duration `envconfig:"SCRIBE_MIN_TASK_DURATION" default:"2m"`
	IdleThreshold     time.Duration `envconfig:"SCRIBE_IDLE_THRESHOLD" default:"5m"`
	AppSwitchDebounce time.Duration `envconfig:"SCRIBE_APP_SWITCH_DEBOUNCE" default:"10s"`
	PairsFile         string        `envconfig:"SCRIBE_PAIRS_FILE"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `envconfig:"SCRIBE_LOG_LEVEL" default:"info"`
	Format string `envconfig:"SCRIBE_LOG_FORMAT" default:"text"`
}

// AnalyticsConfig controls product telemetry.
type AnalyticsConfig struct {
	Enabled  bool   `envconfig:"SCRIBE_ANALYTICS_ENABLED" default:"false"`
	Endpoint string `envconfig:"SCRIBE_ANALYTICS_ENDPOINT" default:"https://us.i.posthog.com"`
}

// Load reads configuration from environment variables and fills in
// path defaults rooted at the user's home directory.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	base := dataDir()
	if cfg.Spool.Dir == "" {
		cfg.Spool.Dir = filepath.Join(base, "spool")
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = filepath.Join(base, "scribe.db")
	}
	if cfg.Storage.SecretsDir == "" {
		cfg.Storage.SecretsDir = filepath.Join(base, "secrets")
	}
	return &cfg, nil
}

func dataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".scribe"
	}
	return filepath.Join(home, ".scribe")
}
