// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"time"
)

// Profile defaults.
const (
	DefaultTheme = "light"
)

// Account holds the credential record for an identity.
type Account struct {
	Identity       string
	CredentialHash string
	CredentialSalt string
	FailedAttempts int
	LockedUntil    *time.Time
	CreatedAt      time.Time
	LastLogin      *time.Time
}

// Lockout returns the account's lockout state.
func (a *Account) Lockout() LockoutState {
	return LockoutState{FailedAttempts: a.FailedAttempts, LockedUntil: a.LockedUntil}
}

// Profile holds the display data of an account.
type Profile struct {
	Identity             string         `json:"identity" yaml:"identity"`
	Nickname             string         `json:"nickname" yaml:"nickname"`
	FullName             string         `json:"full_name" yaml:"full_name"`
	Avatar               string         `json:"avatar,omitempty" yaml:"avatar,omitempty"`
	Theme                string         `json:"theme" yaml:"theme"`
	NotificationsEnabled bool           `json:"notifications_enabled" yaml:"notifications_enabled"`
	Bio                  string         `json:"bio,omitempty" yaml:"bio,omitempty"`
	Settings             map[string]any `json:"settings" yaml:"settings"`
	Groups               []string       `json:"groups" yaml:"groups"`
}

// NewProfile creates a Profile with defaults applied. An empty fullName
// falls back to the nickname.
func NewProfile(identity, nickname, fullName string) *Profile {
	if fullName == "" {
		fullName = nickname
	}
	return &Profile{
		Identity:             identity,
		Nickname:             nickname,
		FullName:             fullName,
		Theme:                DefaultTheme,
		NotificationsEnabled: true,
		Settings:             map[string]any{},
		Groups:               []string{},
	}
}

// LockoutStore persists per-account lockout state.
type LockoutStore interface {
	// UpdateLockout loads the lockout state of identity, passes it to fn and
	// persists the state fn returns. Calls for the same identity are
	// serialized so no update is lost. Returns ErrNotFound if the account
	// does not exist. If fn returns an error nothing is written.
	UpdateLockout(ctx context.Context, identity string, fn func(LockoutState) (LockoutState, error)) (LockoutState, error)

	// RecordLogin clears the lockout state and sets last_login.
	RecordLogin(ctx context.Context, identity string, at time.Time) error
}

// AccountRepository manages account and profile persistence.
type AccountRepository interface {
	LockoutStore

	// Create stores the account, its profile, and the optional group
	// membership as one unit: either all are visible or none is.
	// Returns ErrAlreadyExists if the identity or nickname is taken.
	Create(ctx context.Context, account *Account, profile *Profile, groupID string) error

	// GetByIdentity retrieves an account by normalized identity.
	GetByIdentity(ctx context.Context, identity string) (*Account, error)

	// IdentityExists reports whether an account with identity exists.
	IdentityExists(ctx context.Context, identity string) (bool, error)

	// NicknameExists reports whether a profile uses nickname (case-insensitive).
	NicknameExists(ctx context.Context, nickname string) (bool, error)

	// GetProfile retrieves the profile of identity, including its groups.
	GetProfile(ctx context.Context, identity string) (*Profile, error)
}
