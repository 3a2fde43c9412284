// Package config loads service configuration from a yaml file with
// environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Bo-sung/mineconomy/internal/store"
)

// SchedulerConfig tunes the price recomputation loop.
type SchedulerConfig struct {
	Interval         time.Duration `yaml:"interval" mapstructure:"interval"`
	PreflightRetries int           `yaml:"preflight_retries" mapstructure:"preflight_retries"`
	PreflightDelay   time.Duration `yaml:"preflight_delay" mapstructure:"preflight_delay"`
	Workers          int           `yaml:"workers" mapstructure:"workers"`
	// WriteEpsilon is the minimum price delta, in currency units, that
	// triggers a republish.
	WriteEpsilon float64 `yaml:"write_epsilon" mapstructure:"write_epsilon"`
}

// EconomyConfig holds world-level economy settings.
type EconomyConfig struct {
	// KeyPrefix namespaces every cache key, e.g. "world1".
	KeyPrefix string `yaml:"key_prefix" mapstructure:"key_prefix"`
	// ServerCapacity is the fallback player capacity when the cached
	// config entry is unavailable.
	ServerCapacity int `yaml:"server_capacity" mapstructure:"server_capacity"`
}

// CatalogConfig points at the relational item catalog.
type CatalogConfig struct {
	DSN string `yaml:"dsn" mapstructure:"dsn"`
}

// HTTPConfig configures the read/admin HTTP surface.
type HTTPConfig struct {
	Addr            string        `yaml:"addr" mapstructure:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
}

// Config is the root service configuration.
type Config struct {
	LogLevel  string            `yaml:"log_level" mapstructure:"log_level"`
	Redis     store.RedisConfig `yaml:"redis" mapstructure:"redis"`
	Economy   EconomyConfig     `yaml:"economy" mapstructure:"economy"`
	Scheduler SchedulerConfig   `yaml:"scheduler" mapstructure:"scheduler"`
	Catalog   CatalogConfig     `yaml:"catalog" mapstructure:"catalog"`
	HTTP      HTTPConfig        `yaml:"http" mapstructure:"http"`
}

// Load reads configuration from the given yaml file (optional) and the
// environment. Env vars use the MINECONOMY_ prefix with underscores, e.g.
// MINECONOMY_REDIS_ADDR.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("MINECONOMY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")

	rc := store.DefaultRedisConfig()
	v.SetDefault("redis.addr", rc.Addr)
	v.SetDefault("redis.db", rc.DB)
	v.SetDefault("redis.pool_size", rc.PoolSize)
	v.SetDefault("redis.min_idle_conns", rc.MinIdleConns)
	v.SetDefault("redis.pool_timeout", rc.PoolTimeout)
	v.SetDefault("redis.max_retries", rc.MaxRetries)
	v.SetDefault("redis.min_retry_backoff", rc.MinRetryBackoff)
	v.SetDefault("redis.max_retry_backoff", rc.MaxRetryBackoff)
	v.SetDefault("redis.dial_timeout", rc.DialTimeout)
	v.SetDefault("redis.read_timeout", rc.ReadTimeout)
	v.SetDefault("redis.write_timeout", rc.WriteTimeout)

	v.SetDefault("economy.key_prefix", "economy")
	v.SetDefault("economy.server_capacity", 100)

	v.SetDefault("scheduler.interval", 10*time.Minute)
	v.SetDefault("scheduler.preflight_retries", 3)
	v.SetDefault("scheduler.preflight_delay", 30*time.Second)
	v.SetDefault("scheduler.workers", 4)
	v.SetDefault("scheduler.write_epsilon", 0.01)

	v.SetDefault("catalog.dsn", "file:mineconomy.db?cache=shared")

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.shutdown_timeout", 10*time.Second)
}

func validate(cfg *Config) error {
	if cfg.Scheduler.Interval <= 0 {
		return fmt.Errorf("scheduler.interval must be positive, got %s", cfg.Scheduler.Interval)
	}
	if cfg.Scheduler.Workers <= 0 {
		return fmt.Errorf("scheduler.workers must be positive, got %d", cfg.Scheduler.Workers)
	}
	if cfg.Scheduler.WriteEpsilon < 0 {
		return fmt.Errorf("scheduler.write_epsilon must not be negative, got %v", cfg.Scheduler.WriteEpsilon)
	}
	if cfg.Economy.ServerCapacity <= 0 {
		return fmt.Errorf("economy.server_capacity must be positive, got %d", cfg.Economy.ServerCapacity)
	}
	return nil
}
