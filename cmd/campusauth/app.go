// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/campusauth/internal/auth"
	"github.com/holomush/campusauth/internal/auth/memory"
	"github.com/holomush/campusauth/internal/auth/postgres"
	"github.com/holomush/campusauth/internal/config"
	"github.com/holomush/campusauth/internal/logging"
	"github.com/holomush/campusauth/internal/ratelimit"
	"github.com/holomush/campusauth/internal/store"
	"github.com/holomush/campusauth/internal/xdg"
)

const serviceName = "campusauth"

// cliOrigin is the origin address recorded for admin CLI operations.
const cliOrigin = "cli"

// loadConfig resolves the configuration from --config and the flags the
// user set on cmd. Without --config the XDG config file is used when it
// exists.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, oops.Code("CONFIG_INVALID").Wrap(err)
	}
	if path == "" {
		if path, err = xdg.ExistingConfigFile(); err != nil {
			return nil, err
		}
	}
	return config.Load(path, cmd.Flags())
}

// newLogger builds the process logger from cfg, writing to cmd's stderr.
func newLogger(cmd *cobra.Command, cfg *config.Config) *slog.Logger {
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	return logging.Setup(serviceName, version, cfg.Log.Format, level, cmd.ErrOrStderr())
}

// backend holds the repositories for the configured storage.
type backend struct {
	accounts auth.AccountRepository
	sessions auth.SessionRepository
	audit    auth.AuditRepository
	pool     *pgxpool.Pool
}

// openBackend connects the configured storage, applying migrations first
// when auto_migrate is set.
func openBackend(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*backend, error) {
	if cfg.Database.Storage == config.StorageMemory {
		logger.Warn("using in-memory storage, state is lost on exit")
		return &backend{
			accounts: memory.NewAccountRepository(),
			sessions: memory.NewSessionRepository(),
			audit:    memory.NewAuditRepository(),
		}, nil
	}

	if cfg.Database.AutoMigrate {
		if err := migrateUp(cfg.Database.URL, logger); err != nil {
			return nil, err
		}
	}

	opts := store.DefaultPoolOptions()
	opts.MaxConns = cfg.Database.MaxConns
	pool, err := store.NewPool(ctx, cfg.Database.URL, opts, logger)
	if err != nil {
		return nil, oops.With("operation", "connect to database").Wrap(err)
	}
	logger.Info("connected to database", "max_conns", pool.Config().MaxConns)

	return &backend{
		accounts: postgres.NewAccountRepository(pool),
		sessions: postgres.NewSessionRepository(pool),
		audit:    postgres.NewAuditRepository(pool),
		pool:     pool,
	}, nil
}

// Ready pings the database. Memory storage is always ready.
func (b *backend) Ready(ctx context.Context) error {
	if b.pool == nil {
		return nil
	}
	if err := b.pool.Ping(ctx); err != nil {
		return oops.Code("DB_PING_FAILED").Wrap(err)
	}
	return nil
}

// Close releases the database pool.
func (b *backend) Close() {
	if b.pool != nil {
		b.pool.Close()
	}
}

func migrateUp(databaseURL string, logger *slog.Logger) error {
	migrator, err := store.NewMigrator(databaseURL)
	if err != nil {
		return oops.With("operation", "auto-migrate").Wrap(err)
	}
	defer func() {
		if closeErr := migrator.Close(); closeErr != nil {
			logger.Warn("failed to close migrator", "error", closeErr)
		}
	}()

	if err := migrator.Up(); err != nil {
		return oops.With("operation", "auto-migrate").Wrap(err)
	}
	current, _, err := migrator.Version()
	if err != nil {
		return oops.With("operation", "auto-migrate").Wrap(err)
	}
	logger.Info("database schema up to date", "version", current)
	return nil
}

// newLimiter builds the configured rate limiter. The returned stop
// function releases background work and connections.
func newLimiter(ctx context.Context, cfg *config.Config, logger *slog.Logger) (auth.RateLimiter, func(), error) {
	rl := cfg.RateLimit
	switch rl.Backend {
	case config.LimiterNone:
		logger.Warn("rate limiting disabled")
		return auth.AllowAll{}, func() {}, nil
	case config.LimiterTokenBucket:
		limiter, err := ratelimit.NewTokenBucket(rl.Limit, rl.Window, nil)
		if err != nil {
			return nil, nil, err
		}
		pruneCtx, cancel := context.WithCancel(ctx)
		go limiter.RunPruner(pruneCtx, rl.Window, 2*rl.Window)
		return limiter, cancel, nil
	case config.LimiterRedis:
		client, err := ratelimit.ConnectRedis(ctx, rl.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		limiter, err := ratelimit.NewRedis(client, rl.Limit, rl.Window, rl.RedisPrefix)
		if err != nil {
			_ = client.Close() //nolint:errcheck // construction error takes precedence
			return nil, nil, err
		}
		return limiter, func() {
			if closeErr := client.Close(); closeErr != nil {
				logger.Warn("failed to close redis client", "error", closeErr)
			}
		}, nil
	default:
		limiter, err := ratelimit.NewFixedWindow(rl.Limit, rl.Window, nil)
		if err != nil {
			return nil, nil, err
		}
		return limiter, func() {}, nil
	}
}

// newService wires an auth.Service over b.
func newService(cfg *config.Config, b *backend, limiter auth.RateLimiter, logger *slog.Logger, metrics auth.MetricsRecorder) (*auth.Service, error) {
	svc, err := auth.NewService(auth.ServiceConfig{
		Accounts:   b.accounts,
		Sessions:   b.sessions,
		Audit:      b.audit,
		Hasher:     auth.NewPBKDF2Hasher(cfg.Auth.PBKDF2Iterations),
		Limiter:    limiter,
		Lockout:    cfg.LockoutPolicy(),
		SessionTTL: cfg.Auth.SessionTTL,
		Logger:     logger,
		Metrics:    metrics,
	})
	if err != nil {
		return nil, oops.Code("SERVICE_INIT_FAILED").Wrap(err)
	}
	return svc, nil
}

// adminApp is the wiring shared by the one-shot admin commands. Admin
// operations are not rate limited.
type adminApp struct {
	cfg     *config.Config
	logger  *slog.Logger
	backend *backend
	service *auth.Service
}

func newAdminApp(cmd *cobra.Command) (*adminApp, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger := newLogger(cmd, cfg)

	b, err := openBackend(cmd.Context(), cfg, logger)
	if err != nil {
		return nil, err
	}
	svc, err := newService(cfg, b, auth.AllowAll{}, logger, nil)
	if err != nil {
		b.Close()
		return nil, err
	}
	return &adminApp{cfg: cfg, logger: logger, backend: b, service: svc}, nil
}

func (a *adminApp) Close() {
	a.backend.Close()
}
