// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package store owns the PostgreSQL connection pool and schema migrations.
package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// PoolOptions tunes NewPool.
type PoolOptions struct {
	// MaxConns caps the pool size. Zero keeps the pgxpool default.
	MaxConns int32
	// ConnectAttempts is how many times the initial ping is retried.
	ConnectAttempts uint64
	// ConnectBackoff is the first retry delay; it doubles per attempt.
	ConnectBackoff time.Duration
}

// DefaultPoolOptions returns the options used by the server.
func DefaultPoolOptions() PoolOptions {
	return PoolOptions{ConnectAttempts: 5, ConnectBackoff: 200 * time.Millisecond}
}

// pinger is satisfied by *pgxpool.Pool.
type pinger interface {
	Ping(ctx context.Context) error
}

// NewPool opens a pgx pool for dsn and waits until the database answers.
func NewPool(ctx context.Context, dsn string, opts PoolOptions, logger *slog.Logger) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, oops.Code("DB_CONFIG_INVALID").With("operation", "parse database url").Wrap(err)
	}
	if opts.MaxConns > 0 {
		cfg.MaxConns = opts.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").With("operation", "create pool").Wrap(err)
	}

	if err := waitForDatabase(ctx, pool, opts, logger); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

// waitForDatabase pings p with exponential backoff until it succeeds or
// the attempts are used up.
func waitForDatabase(ctx context.Context, p pinger, opts PoolOptions, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	backoff := opts.ConnectBackoff
	if backoff <= 0 {
		backoff = 100 * time.Millisecond
	}

	attempt := 0
	b := retry.WithMaxRetries(opts.ConnectAttempts, retry.NewExponential(backoff))
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		attempt++
		if err := p.Ping(ctx); err != nil {
			logger.WarnContext(ctx, "database not ready", "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").
			With("operation", "ping database").
			With("attempts", attempt).
			Wrap(err)
	}
	return nil
}
