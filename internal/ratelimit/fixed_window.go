// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package ratelimit provides auth.RateLimiter implementations keyed by
// origin address and action.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/samber/oops"

	"github.com/holomush/campusauth/internal/auth"
)

// sweepThreshold is the number of tracked keys above which expired
// windows are pruned on the next call.
const sweepThreshold = 4096

type window struct {
	start time.Time
	count int
}

// FixedWindow allows limit actions per key in each window. The window for
// a key starts at its first action.
type FixedWindow struct {
	limit  int
	period time.Duration
	now    func() time.Time

	mu      sync.Mutex
	windows map[string]*window
}

// NewFixedWindow creates a FixedWindow limiter. A nil now uses time.Now.
func NewFixedWindow(limit int, period time.Duration, now func() time.Time) (*FixedWindow, error) {
	if err := validate(limit, period); err != nil {
		return nil, err
	}
	if now == nil {
		now = time.Now
	}
	return &FixedWindow{
		limit:   limit,
		period:  period,
		now:     now,
		windows: make(map[string]*window),
	}, nil
}

// Allow implements auth.RateLimiter.
func (l *FixedWindow) Allow(_ context.Context, originAddress string, action auth.Action) (bool, error) {
	key := auth.RateLimitKey(originAddress, action)
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.windows) >= sweepThreshold {
		l.sweepLocked(now)
	}

	w, ok := l.windows[key]
	if !ok || !now.Before(w.start.Add(l.period)) {
		w = &window{start: now}
		l.windows[key] = w
	}
	if w.count >= l.limit {
		return false, nil
	}
	w.count++
	return true, nil
}

// Len returns the number of keys currently tracked.
func (l *FixedWindow) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}

func (l *FixedWindow) sweepLocked(now time.Time) {
	for key, w := range l.windows {
		if !now.Before(w.start.Add(l.period)) {
			delete(l.windows, key)
		}
	}
}

func validate(limit int, period time.Duration) error {
	if limit < 1 {
		return oops.Code("RATE_LIMIT_INVALID").With("limit", limit).Errorf("limit must be at least 1")
	}
	if period <= 0 {
		return oops.Code("RATE_LIMIT_INVALID").With("window", period.String()).Errorf("window must be positive")
	}
	return nil
}

// Compile-time interface check.
var _ auth.RateLimiter = (*FixedWindow)(nil)
