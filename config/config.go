// cartservice/config/config.go

package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Storage backends selectable through CART_BACKEND.
const (
	BackendLocal  = "local"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
)

// Config is the process configuration read from the environment.
type Config struct {
	Port       string `env:"PORT" envDefault:"7070"`
	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`
	Backend    string `env:"CART_BACKEND" envDefault:"sqlite"`
	StorageKey string `env:"CART_STORAGE_KEY" envDefault:"GoMarketplace:Products"`
	RedisAddr  string `env:"REDIS_ADDR"`
	SQLitePath string `env:"SQLITE_PATH" envDefault:"gomarketplace-cart.db"`

	OTelEnabled  bool   `env:"OTEL_ENABLED" envDefault:"false"`
	OTelEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4317"`
}

// Load parses the environment and validates the result.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.Backend = strings.ToLower(strings.TrimSpace(cfg.Backend))
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports settings that cannot work together.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendLocal:
	case BackendRedis:
		if strings.TrimSpace(c.RedisAddr) == "" {
			return fmt.Errorf("REDIS_ADDR is required when CART_BACKEND=%s", BackendRedis)
		}
	case BackendSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			return fmt.Errorf("SQLITE_PATH is required when CART_BACKEND=%s", BackendSQLite)
		}
	default:
		return fmt.Errorf("unknown CART_BACKEND %q", c.Backend)
	}
	if strings.TrimSpace(c.StorageKey) == "" {
		return fmt.Errorf("CART_STORAGE_KEY must not be empty")
	}
	return nil
}

// RedisAddress appends the default port when REDIS_ADDR carries none.
func (c Config) RedisAddress() string {
	if strings.HasPrefix(c.RedisAddr, "redis://") || strings.HasPrefix(c.RedisAddr, "rediss://") {
		return c.RedisAddr
	}
	if !strings.Contains(c.RedisAddr, ":") {
		return c.RedisAddr + ":6379"
	}
	return c.RedisAddr
}
