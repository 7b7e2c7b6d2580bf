// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"time"

	"github.com/samber/oops"
)

// Lockout configuration.
const (
	// DefaultLockoutThreshold is the number of consecutive failures that locks an account.
	DefaultLockoutThreshold = 5

	// DefaultLockoutDuration is how long a lock lasts.
	DefaultLockoutDuration = 15 * time.Minute
)

// LockoutPolicy configures when accounts lock and for how long.
type LockoutPolicy struct {
	Threshold int
	Duration  time.Duration
}

// DefaultLockoutPolicy returns the 5 failures / 15 minutes policy.
func DefaultLockoutPolicy() LockoutPolicy {
	return LockoutPolicy{Threshold: DefaultLockoutThreshold, Duration: DefaultLockoutDuration}
}

// LockoutState is the per-account failure counter and lock.
type LockoutState struct {
	FailedAttempts int
	LockedUntil    *time.Time
}

// IsLockedAt returns true if the account is locked at now.
func (s LockoutState) IsLockedAt(now time.Time) bool {
	return s.LockedUntil != nil && now.Before(*s.LockedUntil)
}

// RemainingAt returns how long the lock still holds at now.
func (s LockoutState) RemainingAt(now time.Time) time.Duration {
	if !s.IsLockedAt(now) {
		return 0
	}
	return s.LockedUntil.Sub(now)
}

// LockoutOutcome describes what a recorded failure did.
type LockoutOutcome int

// Lockout outcomes.
const (
	// FailureRecorded means the counter advanced without locking.
	FailureRecorded LockoutOutcome = iota
	// Locked means this failure crossed the threshold.
	Locked
	// AlreadyLocked means a concurrent attempt locked the account first.
	AlreadyLocked
)

// ApplyFailure returns the state after one more failure at now.
// A lock that already holds is left untouched. After a lock expires the
// counter is not reset, so the next failure locks again.
func (p LockoutPolicy) ApplyFailure(state LockoutState, now time.Time) (LockoutState, LockoutOutcome) {
	if state.IsLockedAt(now) {
		return state, AlreadyLocked
	}
	next := LockoutState{FailedAttempts: state.FailedAttempts + 1}
	if next.FailedAttempts >= p.Threshold {
		until := now.Add(p.Duration)
		next.LockedUntil = &until
		return next, Locked
	}
	return next, FailureRecorded
}

// LockoutTracker owns lockout transitions. Only the Service mutates it.
type LockoutTracker struct {
	store  LockoutStore
	policy LockoutPolicy
	now    func() time.Time
}

// NewLockoutTracker creates a LockoutTracker.
func NewLockoutTracker(store LockoutStore, policy LockoutPolicy, now func() time.Time) (*LockoutTracker, error) {
	if store == nil {
		return nil, oops.Errorf("lockout store is required")
	}
	if policy.Threshold < 1 {
		return nil, oops.With("threshold", policy.Threshold).Errorf("lockout threshold must be at least 1")
	}
	if policy.Duration <= 0 {
		return nil, oops.With("duration", policy.Duration).Errorf("lockout duration must be positive")
	}
	if now == nil {
		now = time.Now
	}
	return &LockoutTracker{store: store, policy: policy, now: now}, nil
}

// Policy returns the tracker's policy.
func (t *LockoutTracker) Policy() LockoutPolicy {
	return t.policy
}

// RecordFailure advances the failure counter of identity under the store's
// per-account serialization and reports the resulting state and outcome.
func (t *LockoutTracker) RecordFailure(ctx context.Context, identity string) (LockoutState, LockoutOutcome, error) {
	var outcome LockoutOutcome
	now := t.now()
	state, err := t.store.UpdateLockout(ctx, identity, func(current LockoutState) (LockoutState, error) {
		var next LockoutState
		next, outcome = t.policy.ApplyFailure(current, now)
		return next, nil
	})
	if err != nil {
		return LockoutState{}, FailureRecorded, oops.
			With("operation", "record failure").
			With("identity", identity).
			Wrap(err)
	}
	return state, outcome, nil
}

// RecordSuccess resets the counter and records the login time.
func (t *LockoutTracker) RecordSuccess(ctx context.Context, identity string) error {
	if err := t.store.RecordLogin(ctx, identity, t.now()); err != nil {
		return oops.
			With("operation", "record success").
			With("identity", identity).
			Wrap(err)
	}
	return nil
}
