package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all host configuration.
type Config struct {
	Server    ServerConfig
	Loader    LoaderConfig
	Sandbox   SandboxConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
	Manifest  ManifestConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8900"`
	Host string `envconfig:"HOST" default:"0.0.0.0"`
}

// LoaderConfig holds source loader configuration.
type LoaderConfig struct {
	Timeout       time.Duration `envconfig:"LOADER_TIMEOUT" default:"30s"`
	RetryMax      int           `envconfig:"LOADER_RETRY_MAX" default:"3"`
	RetryWaitMin  time.Duration `envconfig:"LOADER_RETRY_WAIT_MIN" default:"1s"`
	RetryWaitMax  time.Duration `envconfig:"LOADER_RETRY_WAIT_MAX" default:"15s"`
	RateRPS       float64       `envconfig:"LOADER_RATE_RPS" default:"0"` // 0 = unlimited
	PrefetchCache bool          `envconfig:"LOADER_PREFETCH_CACHE" default:"true"`
}

// SandboxConfig holds script sandbox configuration.
type SandboxConfig struct {
	Enabled      bool          `envconfig:"SANDBOX_ENABLED" default:"true"`
	ExecTimeout  time.Duration `envconfig:"SANDBOX_EXEC_TIMEOUT" default:"5s"`
	MaxCallStack int           `envconfig:"SANDBOX_MAX_CALL_STACK" default:"1024"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds API rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// ManifestConfig points at the optional apps manifest loaded at boot.
type ManifestConfig struct {
	Path string `envconfig:"APPS_MANIFEST" default:""`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns defaults.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Port: "8900", Host: "0.0.0.0"},
		Loader: LoaderConfig{
			Timeout:       30 * time.Second,
			RetryMax:      3,
			RetryWaitMin:  time.Second,
			RetryWaitMax:  15 * time.Second,
			PrefetchCache: true,
		},
		Sandbox: SandboxConfig{Enabled: true, ExecTimeout: 5 * time.Second, MaxCallStack: 1024},
		Logging: LogConfig{Level: "info"},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
	}
}
