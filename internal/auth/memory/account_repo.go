// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package memory provides in-process implementations of the auth
// repositories. State lives for the life of the process.
package memory

import (
	"context"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/samber/oops"

	"github.com/holomush/campusauth/internal/auth"
)

// AccountRepository implements auth.AccountRepository in memory.
type AccountRepository struct {
	mu        sync.RWMutex
	accounts  map[string]*auth.Account
	profiles  map[string]*auth.Profile
	nicknames map[string]string   // lower-cased nickname -> identity
	groups    map[string][]string // identity -> group ids
	locks     keyedMutex
}

// NewAccountRepository creates an empty AccountRepository.
func NewAccountRepository() *AccountRepository {
	return &AccountRepository{
		accounts:  make(map[string]*auth.Account),
		profiles:  make(map[string]*auth.Profile),
		nicknames: make(map[string]string),
		groups:    make(map[string][]string),
	}
}

// Create stores the account, profile and group membership together.
func (r *AccountRepository) Create(_ context.Context, account *auth.Account, profile *auth.Profile, groupID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.accounts[account.Identity]; ok {
		return oops.Code("ACCOUNT_EXISTS").With("identity", account.Identity).Wrap(auth.ErrAlreadyExists)
	}
	nickKey := strings.ToLower(profile.Nickname)
	if _, ok := r.nicknames[nickKey]; ok {
		return oops.Code("NICKNAME_EXISTS").With("nickname", profile.Nickname).Wrap(auth.ErrAlreadyExists)
	}

	accountCopy := *account
	r.accounts[account.Identity] = &accountCopy
	r.profiles[account.Identity] = copyProfile(profile)
	r.nicknames[nickKey] = account.Identity
	if groupID != "" {
		r.groups[account.Identity] = []string{groupID}
	}
	return nil
}

// GetByIdentity retrieves an account by identity.
func (r *AccountRepository) GetByIdentity(_ context.Context, identity string) (*auth.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	account, ok := r.accounts[identity]
	if !ok {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").With("identity", identity).Wrap(auth.ErrNotFound)
	}
	accountCopy := *account
	return &accountCopy, nil
}

// IdentityExists reports whether identity is registered.
func (r *AccountRepository) IdentityExists(_ context.Context, identity string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.accounts[identity]
	return ok, nil
}

// NicknameExists reports whether nickname is taken, ignoring case.
func (r *AccountRepository) NicknameExists(_ context.Context, nickname string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.nicknames[strings.ToLower(nickname)]
	return ok, nil
}

// GetProfile retrieves the profile of identity with its groups.
func (r *AccountRepository) GetProfile(_ context.Context, identity string) (*auth.Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	profile, ok := r.profiles[identity]
	if !ok {
		return nil, oops.Code("PROFILE_NOT_FOUND").With("identity", identity).Wrap(auth.ErrNotFound)
	}
	out := copyProfile(profile)
	out.Groups = slices.Clone(r.groups[identity])
	if out.Groups == nil {
		out.Groups = []string{}
	}
	return out, nil
}

// UpdateLockout applies fn to the lockout state of identity while holding
// that identity's lock.
func (r *AccountRepository) UpdateLockout(_ context.Context, identity string, fn func(auth.LockoutState) (auth.LockoutState, error)) (auth.LockoutState, error) {
	unlock := r.locks.Lock(identity)
	defer unlock()

	r.mu.RLock()
	account, ok := r.accounts[identity]
	var current auth.LockoutState
	if ok {
		current = account.Lockout()
	}
	r.mu.RUnlock()
	if !ok {
		return auth.LockoutState{}, oops.Code("ACCOUNT_NOT_FOUND").With("identity", identity).Wrap(auth.ErrNotFound)
	}

	next, err := fn(current)
	if err != nil {
		return auth.LockoutState{}, err
	}

	r.mu.Lock()
	account.FailedAttempts = next.FailedAttempts
	account.LockedUntil = next.LockedUntil
	r.mu.Unlock()
	return next, nil
}

// RecordLogin clears the lockout state and sets LastLogin.
func (r *AccountRepository) RecordLogin(_ context.Context, identity string, at time.Time) error {
	unlock := r.locks.Lock(identity)
	defer unlock()

	r.mu.Lock()
	defer r.mu.Unlock()

	account, ok := r.accounts[identity]
	if !ok {
		return oops.Code("ACCOUNT_NOT_FOUND").With("identity", identity).Wrap(auth.ErrNotFound)
	}
	account.FailedAttempts = 0
	account.LockedUntil = nil
	loginAt := at
	account.LastLogin = &loginAt
	return nil
}

func copyProfile(p *auth.Profile) *auth.Profile {
	out := *p
	out.Settings = maps.Clone(p.Settings)
	if out.Settings == nil {
		out.Settings = map[string]any{}
	}
	out.Groups = slices.Clone(p.Groups)
	return &out
}

// keyedMutex hands out one mutex per key.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedEntry
}

type keyedEntry struct {
	mu   sync.Mutex
	refs int
}

// Lock acquires the mutex for key and returns its release function.
// Entries are dropped once no caller holds or waits on them.
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*keyedEntry)
	}
	entry, ok := k.locks[key]
	if !ok {
		entry = &keyedEntry{}
		k.locks[key] = entry
	}
	entry.refs++
	k.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		k.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

// Compile-time interface check.
var _ auth.AccountRepository = (*AccountRepository)(nil)
