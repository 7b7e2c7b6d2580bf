// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"

	"github.com/holomush/campusauth/internal/auth"
)

// lockoutRetries bounds how often a conflicting lockout update is retried.
const lockoutRetries = 3

// AccountRepository implements auth.AccountRepository using PostgreSQL.
type AccountRepository struct {
	pool    poolIface
	backoff time.Duration
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(pool poolIface) *AccountRepository {
	return &AccountRepository{pool: pool, backoff: 10 * time.Millisecond}
}

// Create inserts the account, its profile and the optional group
// membership in one transaction. The group is created when missing.
func (r *AccountRepository) Create(ctx context.Context, account *auth.Account, profile *auth.Profile, groupID string) error {
	settings, err := json.Marshal(profile.Settings)
	if err != nil {
		return oops.Code("ACCOUNT_CREATE_FAILED").With("operation", "encode settings").Wrap(err)
	}
	if profile.Settings == nil {
		settings = []byte("{}")
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return oops.Code("TX_BEGIN_FAILED").With("operation", "create account").Wrap(err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	_, err = tx.Exec(ctx, `
		INSERT INTO accounts (identity, credential_hash, credential_salt, failed_attempts, locked_until, created_at, last_login)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		account.Identity,
		account.CredentialHash,
		account.CredentialSalt,
		account.FailedAttempts,
		account.LockedUntil,
		account.CreatedAt,
		account.LastLogin,
	)
	if err != nil {
		return createError("insert account", account.Identity, err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO profiles (identity, nickname, full_name, avatar, theme, notifications_enabled, bio, settings)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		account.Identity,
		profile.Nickname,
		profile.FullName,
		profile.Avatar,
		profile.Theme,
		profile.NotificationsEnabled,
		profile.Bio,
		settings,
	)
	if err != nil {
		return createError("insert profile", account.Identity, err)
	}

	if groupID != "" {
		_, err = tx.Exec(ctx, `
			INSERT INTO groups (id, name) VALUES ($1, $2)
			ON CONFLICT (id) DO NOTHING
		`, groupID, "Group "+groupID)
		if err != nil {
			return createError("ensure group", account.Identity, err)
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO account_groups (identity, group_id) VALUES ($1, $2)
		`, account.Identity, groupID)
		if err != nil {
			return createError("join group", account.Identity, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return createError("commit account", account.Identity, err)
	}
	return nil
}

func createError(operation, identity string, err error) error {
	if constraint, ok := uniqueViolation(err); ok {
		return oops.Code("ACCOUNT_EXISTS").
			With("operation", operation).
			With("identity", identity).
			With("constraint", constraint).
			Wrap(auth.ErrAlreadyExists)
	}
	return oops.Code("ACCOUNT_CREATE_FAILED").
		With("operation", operation).
		With("identity", identity).
		Wrap(err)
}

// GetByIdentity retrieves an account by identity.
func (r *AccountRepository) GetByIdentity(ctx context.Context, identity string) (*auth.Account, error) {
	var a auth.Account
	err := r.pool.QueryRow(ctx, `
		SELECT identity, credential_hash, credential_salt, failed_attempts, locked_until, created_at, last_login
		FROM accounts
		WHERE identity = $1
	`, identity).Scan(
		&a.Identity,
		&a.CredentialHash,
		&a.CredentialSalt,
		&a.FailedAttempts,
		&a.LockedUntil,
		&a.CreatedAt,
		&a.LastLogin,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").With("identity", identity).Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("ACCOUNT_GET_FAILED").
			With("operation", "get account by identity").
			With("identity", identity).
			Wrap(err)
	}
	return &a, nil
}

// IdentityExists reports whether identity is registered.
func (r *AccountRepository) IdentityExists(ctx context.Context, identity string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE identity = $1)`, identity).Scan(&exists)
	if err != nil {
		return false, oops.Code("ACCOUNT_EXISTS_CHECK_FAILED").
			With("operation", "check identity").
			With("identity", identity).
			Wrap(err)
	}
	return exists, nil
}

// NicknameExists reports whether nickname is taken, ignoring case.
func (r *AccountRepository) NicknameExists(ctx context.Context, nickname string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM profiles WHERE lower(nickname) = lower($1))`, nickname).Scan(&exists)
	if err != nil {
		return false, oops.Code("ACCOUNT_EXISTS_CHECK_FAILED").
			With("operation", "check nickname").
			With("nickname", nickname).
			Wrap(err)
	}
	return exists, nil
}

// GetProfile retrieves the profile of identity with its groups.
func (r *AccountRepository) GetProfile(ctx context.Context, identity string) (*auth.Profile, error) {
	var p auth.Profile
	var settings []byte
	err := r.pool.QueryRow(ctx, `
		SELECT identity, nickname, full_name, avatar, theme, notifications_enabled, bio, settings
		FROM profiles
		WHERE identity = $1
	`, identity).Scan(
		&p.Identity,
		&p.Nickname,
		&p.FullName,
		&p.Avatar,
		&p.Theme,
		&p.NotificationsEnabled,
		&p.Bio,
		&settings,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("PROFILE_NOT_FOUND").With("identity", identity).Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("PROFILE_GET_FAILED").
			With("operation", "get profile").
			With("identity", identity).
			Wrap(err)
	}

	p.Settings = map[string]any{}
	if len(settings) > 0 {
		if err := json.Unmarshal(settings, &p.Settings); err != nil {
			return nil, oops.Code("PROFILE_GET_FAILED").
				With("operation", "decode settings").
				With("identity", identity).
				Wrap(err)
		}
	}

	groups, err := r.groupsOf(ctx, identity)
	if err != nil {
		return nil, err
	}
	p.Groups = groups
	return &p, nil
}

func (r *AccountRepository) groupsOf(ctx context.Context, identity string) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT group_id FROM account_groups WHERE identity = $1 ORDER BY group_id
	`, identity)
	if err != nil {
		return nil, oops.Code("PROFILE_GET_FAILED").
			With("operation", "list groups").
			With("identity", identity).
			Wrap(err)
	}
	defer rows.Close()

	groups := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, oops.Code("PROFILE_GET_FAILED").With("operation", "scan group row").Wrap(err)
		}
		groups = append(groups, id)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("PROFILE_GET_FAILED").With("operation", "iterate group rows").Wrap(err)
	}
	return groups, nil
}

// UpdateLockout applies fn to the lockout state of identity inside a
// transaction holding the account row lock. Serialization conflicts are
// retried with backoff.
func (r *AccountRepository) UpdateLockout(ctx context.Context, identity string, fn func(auth.LockoutState) (auth.LockoutState, error)) (auth.LockoutState, error) {
	var result auth.LockoutState
	b := retry.WithMaxRetries(lockoutRetries, retry.NewExponential(r.backoff))
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		next, err := r.updateLockoutOnce(ctx, identity, fn)
		if err != nil {
			if retryable(err) {
				return retry.RetryableError(err)
			}
			return err
		}
		result = next
		return nil
	})
	if err != nil {
		return auth.LockoutState{}, err
	}
	return result, nil
}

func (r *AccountRepository) updateLockoutOnce(ctx context.Context, identity string, fn func(auth.LockoutState) (auth.LockoutState, error)) (auth.LockoutState, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return auth.LockoutState{}, oops.Code("TX_BEGIN_FAILED").With("operation", "update lockout").Wrap(err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	var current auth.LockoutState
	err = tx.QueryRow(ctx, `
		SELECT failed_attempts, locked_until FROM accounts WHERE identity = $1 FOR UPDATE
	`, identity).Scan(&current.FailedAttempts, &current.LockedUntil)
	if errors.Is(err, pgx.ErrNoRows) {
		return auth.LockoutState{}, oops.Code("ACCOUNT_NOT_FOUND").With("identity", identity).Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return auth.LockoutState{}, oops.Code("LOCKOUT_UPDATE_FAILED").
			With("operation", "lock account row").
			With("identity", identity).
			Wrap(err)
	}

	next, err := fn(current)
	if err != nil {
		return auth.LockoutState{}, err
	}

	_, err = tx.Exec(ctx, `
		UPDATE accounts SET failed_attempts = $2, locked_until = $3 WHERE identity = $1
	`, identity, next.FailedAttempts, next.LockedUntil)
	if err != nil {
		return auth.LockoutState{}, oops.Code("LOCKOUT_UPDATE_FAILED").
			With("operation", "write lockout state").
			With("identity", identity).
			Wrap(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return auth.LockoutState{}, oops.Code("LOCKOUT_UPDATE_FAILED").
			With("operation", "commit lockout state").
			With("identity", identity).
			Wrap(err)
	}
	return next, nil
}

// RecordLogin clears the lockout state and sets last_login.
func (r *AccountRepository) RecordLogin(ctx context.Context, identity string, at time.Time) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE accounts SET failed_attempts = 0, locked_until = NULL, last_login = $2
		WHERE identity = $1
	`, identity, at)
	if err != nil {
		return oops.Code("ACCOUNT_RECORD_LOGIN_FAILED").
			With("operation", "record login").
			With("identity", identity).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("ACCOUNT_NOT_FOUND").With("identity", identity).Wrap(auth.ErrNotFound)
	}
	return nil
}

// Compile-time interface check.
var _ auth.AccountRepository = (*AccountRepository)(nil)
