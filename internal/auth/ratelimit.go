// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"time"
)

// Action names an operation gated by a RateLimiter.
type Action string

// Gated actions.
const (
	ActionRegister Action = "register"
	ActionLogin    Action = "login"
)

// Default rate limit: 5 actions per 15 minutes per origin address.
const (
	DefaultRateLimit  = 5
	DefaultRateWindow = 15 * time.Minute
)

// RateLimiter decides whether an origin address may perform an action.
// It is independent of account lockout.
type RateLimiter interface {
	// Allow reports whether the action may proceed and consumes one unit
	// of the caller's allowance when it does.
	Allow(ctx context.Context, originAddress string, action Action) (bool, error)
}

// AllowAll is a RateLimiter that always permits the action.
type AllowAll struct{}

// Allow always returns true.
func (AllowAll) Allow(context.Context, string, Action) (bool, error) {
	return true, nil
}

// RateLimitKey builds the counter key shared by limiter implementations.
func RateLimitKey(originAddress string, action Action) string {
	if originAddress == "" {
		originAddress = "unknown"
	}
	return string(action) + ":" + originAddress
}
