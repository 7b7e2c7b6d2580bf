// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/holomush/campusauth/internal/auth"
)

type bucket struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// TokenBucket refills limit tokens evenly over each window, with a burst
// of limit. Unlike FixedWindow it has no reset boundary to game.
type TokenBucket struct {
	limit rate.Limit
	burst int
	now   func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket
}

// NewTokenBucket creates a TokenBucket limiter. A nil now uses time.Now.
func NewTokenBucket(limit int, period time.Duration, now func() time.Time) (*TokenBucket, error) {
	if err := validate(limit, period); err != nil {
		return nil, err
	}
	if now == nil {
		now = time.Now
	}
	return &TokenBucket{
		limit:   rate.Limit(float64(limit) / period.Seconds()),
		burst:   limit,
		now:     now,
		buckets: make(map[string]*bucket),
	}, nil
}

// Allow implements auth.RateLimiter.
func (l *TokenBucket) Allow(_ context.Context, originAddress string, action auth.Action) (bool, error) {
	now := l.now()
	return l.bucketFor(auth.RateLimitKey(originAddress, action), now).AllowN(now, 1), nil
}

func (l *TokenBucket) bucketFor(key string, now time.Time) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[key] = b
	}
	b.lastAccess = now
	return b.limiter
}

// Prune drops buckets idle for longer than idle and returns how many were
// removed.
func (l *TokenBucket) Prune(idle time.Duration) int {
	cutoff := l.now().Add(-idle)

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key, b := range l.buckets {
		if b.lastAccess.Before(cutoff) {
			delete(l.buckets, key)
			removed++
		}
	}
	return removed
}

// RunPruner calls Prune every interval until ctx is cancelled.
func (l *TokenBucket) RunPruner(ctx context.Context, interval, idle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Prune(idle)
		}
	}
}

// Compile-time interface check.
var _ auth.RateLimiter = (*TokenBucket)(nil)
