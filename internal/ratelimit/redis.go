// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package ratelimit

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"

	"github.com/holomush/campusauth/internal/auth"
)

// DefaultRedisPrefix namespaces limiter keys.
const DefaultRedisPrefix = "campusauth:ratelimit:"

// ConnectRedis opens a Redis client. redisURL may be a redis:// URL or a
// bare host:port. The server is pinged before returning.
func ConnectRedis(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts := &redis.Options{Addr: redisURL}
	if strings.Contains(redisURL, "://") {
		parsed, err := redis.ParseURL(redisURL)
		if err != nil {
			return nil, oops.Code("REDIS_CONFIG_INVALID").With("operation", "parse redis url").Wrap(err)
		}
		opts = parsed
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close() //nolint:errcheck // already failing
		return nil, oops.Code("REDIS_CONNECT_FAILED").With("addr", opts.Addr).Wrap(err)
	}
	return client, nil
}

// Redis is a fixed-window limiter shared by every process using the same
// Redis. The window starts with the first INCR of a key.
type Redis struct {
	client redis.Cmdable
	limit  int64
	period time.Duration
	prefix string
}

// NewRedis creates a Redis limiter. An empty prefix uses DefaultRedisPrefix.
func NewRedis(client redis.Cmdable, limit int, period time.Duration, prefix string) (*Redis, error) {
	if client == nil {
		return nil, oops.Code("RATE_LIMIT_INVALID").Errorf("redis client is required")
	}
	if err := validate(limit, period); err != nil {
		return nil, err
	}
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &Redis{client: client, limit: int64(limit), period: period, prefix: prefix}, nil
}

// Allow implements auth.RateLimiter.
func (l *Redis) Allow(ctx context.Context, originAddress string, action auth.Action) (bool, error) {
	key := l.prefix + auth.RateLimitKey(originAddress, action)

	var count *redis.IntCmd
	_, err := l.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		count = p.Incr(ctx, key)
		p.ExpireNX(ctx, key, l.period)
		return nil
	})
	if err != nil {
		return false, oops.Code("RATE_LIMIT_BACKEND_FAILED").
			With("operation", "increment window").
			With("key", key).
			Wrap(err)
	}
	return count.Val() <= l.limit, nil
}

// Compile-time interface check.
var _ auth.RateLimiter = (*Redis)(nil)
