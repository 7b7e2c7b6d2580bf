// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package ratelimit_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/holomush/campusauth/internal/auth"
	"github.com/holomush/campusauth/internal/ratelimit"
	"github.com/holomush/campusauth/pkg/errutil"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func allowN(t *testing.T, l auth.RateLimiter, addr string, action auth.Action, n int) int {
	t.Helper()
	allowed := 0
	for range n {
		ok, err := l.Allow(context.Background(), addr, action)
		require.NoError(t, err)
		if ok {
			allowed++
		}
	}
	return allowed
}

func TestNewLimiters_Validation(t *testing.T) {
	tests := []struct {
		name   string
		limit  int
		period time.Duration
	}{
		{name: "zero limit", limit: 0, period: time.Minute},
		{name: "negative limit", limit: -1, period: time.Minute},
		{name: "zero window", limit: 5, period: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ratelimit.NewFixedWindow(tt.limit, tt.period, nil)
			errutil.AssertErrorCode(t, err, "RATE_LIMIT_INVALID")
			_, err = ratelimit.NewTokenBucket(tt.limit, tt.period, nil)
			errutil.AssertErrorCode(t, err, "RATE_LIMIT_INVALID")
		})
	}
}

func TestFixedWindow(t *testing.T) {
	t.Run("allows limit per window", func(t *testing.T) {
		clock := newTestClock()
		l, err := ratelimit.NewFixedWindow(auth.DefaultRateLimit, auth.DefaultRateWindow, clock.Now)
		require.NoError(t, err)

		assert.Equal(t, 5, allowN(t, l, "10.0.0.1", auth.ActionLogin, 8))

		clock.Advance(auth.DefaultRateWindow - time.Second)
		assert.Equal(t, 0, allowN(t, l, "10.0.0.1", auth.ActionLogin, 1))

		clock.Advance(time.Second)
		assert.Equal(t, 5, allowN(t, l, "10.0.0.1", auth.ActionLogin, 8), "new window starts at the boundary")
	})

	t.Run("keys by address and action", func(t *testing.T) {
		clock := newTestClock()
		l, err := ratelimit.NewFixedWindow(1, time.Minute, clock.Now)
		require.NoError(t, err)

		assert.Equal(t, 1, allowN(t, l, "10.0.0.1", auth.ActionLogin, 2))
		assert.Equal(t, 1, allowN(t, l, "10.0.0.1", auth.ActionRegister, 2))
		assert.Equal(t, 1, allowN(t, l, "10.0.0.2", auth.ActionLogin, 2))
		assert.Equal(t, 3, l.Len())
	})

	t.Run("concurrent callers never exceed the limit", func(t *testing.T) {
		l, err := ratelimit.NewFixedWindow(10, time.Hour, nil)
		require.NoError(t, err)

		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			allowed int
		)
		for range 50 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				ok, err := l.Allow(context.Background(), "10.0.0.1", auth.ActionLogin)
				assert.NoError(t, err)
				if ok {
					mu.Lock()
					allowed++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, 10, allowed)
	})
}

func TestTokenBucket(t *testing.T) {
	t.Run("bursts then refills", func(t *testing.T) {
		clock := newTestClock()
		l, err := ratelimit.NewTokenBucket(5, 15*time.Minute, clock.Now)
		require.NoError(t, err)

		assert.Equal(t, 5, allowN(t, l, "10.0.0.1", auth.ActionLogin, 10))

		clock.Advance(4 * time.Minute)
		assert.Equal(t, 1, allowN(t, l, "10.0.0.1", auth.ActionLogin, 3), "one token per three minutes")

		clock.Advance(time.Hour)
		assert.Equal(t, 5, allowN(t, l, "10.0.0.1", auth.ActionLogin, 10), "refill is capped at the burst")
	})

	t.Run("prunes idle buckets", func(t *testing.T) {
		clock := newTestClock()
		l, err := ratelimit.NewTokenBucket(5, time.Minute, clock.Now)
		require.NoError(t, err)

		allowN(t, l, "10.0.0.1", auth.ActionLogin, 1)
		clock.Advance(time.Hour)
		allowN(t, l, "10.0.0.2", auth.ActionLogin, 1)

		assert.Equal(t, 1, l.Prune(30*time.Minute))
		assert.Equal(t, 0, l.Prune(30*time.Minute))
	})

	t.Run("pruner stops with its context", func(t *testing.T) {
		l, err := ratelimit.NewTokenBucket(5, time.Minute, nil)
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			l.RunPruner(ctx, time.Millisecond, time.Minute)
			close(done)
		}()
		time.Sleep(5 * time.Millisecond)
		cancel()

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("pruner did not stop")
		}
	})
}
