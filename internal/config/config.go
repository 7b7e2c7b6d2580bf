// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package config loads campusauth settings from defaults, an optional YAML
// file and command-line flags, in that order of precedence.
package config

import (
	"os"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/holomush/campusauth/internal/auth"
	"github.com/holomush/campusauth/internal/logging"
)

// Storage backends.
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// Rate limiter backends.
const (
	LimiterFixedWindow = "fixed_window"
	LimiterTokenBucket = "token_bucket"
	LimiterRedis       = "redis"
	LimiterNone        = "none"
)

// Config is the full campusauth configuration.
type Config struct {
	Log       LogConfig       `koanf:"log" json:"log" yaml:"log"`
	HTTP      HTTPConfig      `koanf:"http" json:"http" yaml:"http"`
	Metrics   MetricsConfig   `koanf:"metrics" json:"metrics" yaml:"metrics"`
	Database  DatabaseConfig  `koanf:"database" json:"database" yaml:"database"`
	Auth      AuthConfig      `koanf:"auth" json:"auth" yaml:"auth"`
	RateLimit RateLimitConfig `koanf:"rate_limit" json:"rate_limit" yaml:"rate_limit"`
}

// LogConfig selects log output.
type LogConfig struct {
	Format string `koanf:"format" json:"format,omitempty" yaml:"format" jsonschema:"enum=json,enum=text"`
	Level  string `koanf:"level" json:"level,omitempty" yaml:"level" jsonschema:"enum=debug,enum=info,enum=warn,enum=error"`
}

// HTTPConfig configures the API listener.
type HTTPConfig struct {
	Addr string `koanf:"addr" json:"addr,omitempty" yaml:"addr"`
	// TrustedProxies are glob patterns of peer addresses whose
	// X-Forwarded-For header is honoured.
	TrustedProxies  []string      `koanf:"trusted_proxies" json:"trusted_proxies,omitempty" yaml:"trusted_proxies"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" json:"shutdown_timeout,omitempty" yaml:"shutdown_timeout"`
}

// MetricsConfig configures the observability listener. An empty Addr
// disables it.
type MetricsConfig struct {
	Addr string `koanf:"addr" json:"addr,omitempty" yaml:"addr"`
}

// DatabaseConfig selects and configures account storage.
type DatabaseConfig struct {
	Storage     string `koanf:"storage" json:"storage,omitempty" yaml:"storage" jsonschema:"enum=postgres,enum=memory"`
	URL         string `koanf:"url" json:"url,omitempty" yaml:"url"`
	MaxConns    int32  `koanf:"max_conns" json:"max_conns,omitempty" yaml:"max_conns" jsonschema:"minimum=0"`
	AutoMigrate bool   `koanf:"auto_migrate" json:"auto_migrate,omitempty" yaml:"auto_migrate"`
}

// AuthConfig tunes hashing, lockout and sessions.
type AuthConfig struct {
	PBKDF2Iterations int           `koanf:"pbkdf2_iterations" json:"pbkdf2_iterations,omitempty" yaml:"pbkdf2_iterations" jsonschema:"minimum=100000"`
	LockoutThreshold int           `koanf:"lockout_threshold" json:"lockout_threshold,omitempty" yaml:"lockout_threshold" jsonschema:"minimum=1"`
	LockoutDuration  time.Duration `koanf:"lockout_duration" json:"lockout_duration,omitempty" yaml:"lockout_duration"`
	SessionTTL       time.Duration `koanf:"session_ttl" json:"session_ttl,omitempty" yaml:"session_ttl"`
}

// RateLimitConfig selects the per-address limiter.
type RateLimitConfig struct {
	Backend     string        `koanf:"backend" json:"backend,omitempty" yaml:"backend" jsonschema:"enum=fixed_window,enum=token_bucket,enum=redis,enum=none"`
	Limit       int           `koanf:"limit" json:"limit,omitempty" yaml:"limit" jsonschema:"minimum=1"`
	Window      time.Duration `koanf:"window" json:"window,omitempty" yaml:"window"`
	RedisURL    string        `koanf:"redis_url" json:"redis_url,omitempty" yaml:"redis_url"`
	RedisPrefix string        `koanf:"redis_prefix" json:"redis_prefix,omitempty" yaml:"redis_prefix"`
}

// Default returns the built-in configuration.
func Default() Config {
	policy := auth.DefaultLockoutPolicy()
	return Config{
		Log: LogConfig{Format: "json", Level: "info"},
		HTTP: HTTPConfig{
			Addr:            "127.0.0.1:8080",
			ShutdownTimeout: 10 * time.Second,
		},
		Metrics: MetricsConfig{Addr: "127.0.0.1:9100"},
		Database: DatabaseConfig{
			Storage:  StoragePostgres,
			MaxConns: 10,
		},
		Auth: AuthConfig{
			PBKDF2Iterations: auth.DefaultPBKDF2Iterations,
			LockoutThreshold: policy.Threshold,
			LockoutDuration:  policy.Duration,
			SessionTTL:       auth.SessionTokenExpiry,
		},
		RateLimit: RateLimitConfig{
			Backend: LimiterFixedWindow,
			Limit:   auth.DefaultRateLimit,
			Window:  auth.DefaultRateWindow,
		},
	}
}

// flagKeys maps command-line flag names to configuration keys.
var flagKeys = map[string]string{
	"log-format":         "log.format",
	"log-level":          "log.level",
	"http-addr":          "http.addr",
	"metrics-addr":       "metrics.addr",
	"storage":            "database.storage",
	"database-url":       "database.url",
	"auto-migrate":       "database.auto_migrate",
	"rate-limit-backend": "rate_limit.backend",
	"redis-url":          "rate_limit.redis_url",
}

// RegisterFlags adds the flags Load understands to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "path to a YAML configuration file")
	fs.String("log-format", "", "log format (json or text)")
	fs.String("log-level", "", "log level (debug, info, warn, error)")
	fs.String("http-addr", "", "API listen address")
	fs.String("metrics-addr", "", "metrics and health listen address (empty disables)")
	fs.String("storage", "", "account storage (postgres or memory)")
	fs.String("database-url", "", "PostgreSQL connection URL (default $DATABASE_URL)")
	fs.Bool("auto-migrate", false, "apply pending migrations at startup")
	fs.String("rate-limit-backend", "", "rate limiter (fixed_window, token_bucket, redis, none)")
	fs.String("redis-url", "", "Redis URL for the redis rate limiter (default $REDIS_URL)")
}

// Load builds the configuration. path may be empty. Only flags the user
// set override file values. flags may be nil.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		data, err := os.ReadFile(path) //nolint:gosec // operator-supplied path
		if err != nil {
			return nil, oops.Code("CONFIG_READ_FAILED").With("path", path).Wrap(err)
		}
		if err := ValidateYAML(data); err != nil {
			return nil, oops.Code("CONFIG_SCHEMA_INVALID").With("path", path).Wrap(err)
		}
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_PARSE_FAILED").With("path", path).Wrap(err)
		}
	}

	if flags != nil {
		provider := posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code("CONFIG_PARSE_FAILED").With("source", "flags").Wrap(err)
		}
	}

	cfg := Default()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, oops.Code("CONFIG_PARSE_FAILED").With("operation", "decode").Wrap(err)
	}
	cfg.applyEnv(os.Getenv)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnv fills empty connection URLs from the environment.
func (c *Config) applyEnv(getenv func(string) string) {
	if c.Database.URL == "" {
		c.Database.URL = getenv("DATABASE_URL")
	}
	if c.RateLimit.RedisURL == "" {
		c.RateLimit.RedisURL = getenv("REDIS_URL")
	}
}

// Validate checks invariants the schema cannot express.
func (c *Config) Validate() error {
	invalid := func(key string, value any, msg string) error {
		return oops.Code("CONFIG_INVALID").With("key", key).With("value", value).Errorf("%s: %s", key, msg)
	}

	switch c.Log.Format {
	case "json", "text":
	default:
		return invalid("log.format", c.Log.Format, "must be json or text")
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return invalid("log.level", c.Log.Level, "must be debug, info, warn or error")
	}
	if c.HTTP.Addr == "" {
		return invalid("http.addr", c.HTTP.Addr, "is required")
	}
	if c.HTTP.ShutdownTimeout <= 0 {
		return invalid("http.shutdown_timeout", c.HTTP.ShutdownTimeout.String(), "must be positive")
	}

	switch c.Database.Storage {
	case StoragePostgres:
		if c.Database.URL == "" {
			return invalid("database.url", "", "is required for postgres storage (or set DATABASE_URL)")
		}
	case StorageMemory:
	default:
		return invalid("database.storage", c.Database.Storage, "must be postgres or memory")
	}
	if c.Database.MaxConns < 0 {
		return invalid("database.max_conns", c.Database.MaxConns, "must not be negative")
	}

	if c.Auth.PBKDF2Iterations < auth.MinPBKDF2Iterations {
		return invalid("auth.pbkdf2_iterations", c.Auth.PBKDF2Iterations, "must be at least 100000")
	}
	if c.Auth.LockoutThreshold < 1 {
		return invalid("auth.lockout_threshold", c.Auth.LockoutThreshold, "must be at least 1")
	}
	if c.Auth.LockoutDuration <= 0 {
		return invalid("auth.lockout_duration", c.Auth.LockoutDuration.String(), "must be positive")
	}
	if c.Auth.SessionTTL <= 0 {
		return invalid("auth.session_ttl", c.Auth.SessionTTL.String(), "must be positive")
	}

	switch c.RateLimit.Backend {
	case LimiterNone:
		return nil
	case LimiterFixedWindow, LimiterTokenBucket:
	case LimiterRedis:
		if c.RateLimit.RedisURL == "" {
			return invalid("rate_limit.redis_url", "", "is required for the redis backend (or set REDIS_URL)")
		}
	default:
		return invalid("rate_limit.backend", c.RateLimit.Backend, "must be fixed_window, token_bucket, redis or none")
	}
	if c.RateLimit.Limit < 1 {
		return invalid("rate_limit.limit", c.RateLimit.Limit, "must be at least 1")
	}
	if c.RateLimit.Window <= 0 {
		return invalid("rate_limit.window", c.RateLimit.Window.String(), "must be positive")
	}
	return nil
}

// LockoutPolicy returns the configured auth.LockoutPolicy.
func (c *Config) LockoutPolicy() auth.LockoutPolicy {
	return auth.LockoutPolicy{Threshold: c.Auth.LockoutThreshold, Duration: c.Auth.LockoutDuration}
}
