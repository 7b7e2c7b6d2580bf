// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/holomush/campusauth/internal/auth"
)

const sessionColumns = `id, token_hash, identity, origin_address, user_agent, created_at, expires_at, is_valid`

// SessionRepository implements auth.SessionRepository using PostgreSQL.
type SessionRepository struct {
	pool poolIface
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(pool poolIface) *SessionRepository {
	return &SessionRepository{pool: pool}
}

// Create stores a new session.
func (r *SessionRepository) Create(ctx context.Context, session *auth.Session) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO sessions (`+sessionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		session.ID.String(),
		session.TokenHash,
		session.Identity,
		session.OriginAddress,
		session.UserAgent,
		session.CreatedAt,
		session.ExpiresAt,
		session.Valid,
	)
	if err != nil {
		if _, ok := uniqueViolation(err); ok {
			return oops.Code("SESSION_EXISTS").
				With("session_id", session.ID.String()).
				Wrap(auth.ErrAlreadyExists)
		}
		return oops.Code("SESSION_CREATE_FAILED").
			With("operation", "insert session").
			With("identity", session.Identity).
			Wrap(err)
	}
	return nil
}

// GetByTokenHash retrieves a session by its token hash.
func (r *SessionRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*auth.Session, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+sessionColumns+`
		FROM sessions
		WHERE token_hash = $1
	`, tokenHash)

	session, err := scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("SESSION_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("SESSION_GET_BY_TOKEN_FAILED").
			With("operation", "get session by token hash").
			Wrap(err)
	}
	return session, nil
}

// ListByIdentity returns the sessions of identity, newest first.
func (r *SessionRepository) ListByIdentity(ctx context.Context, identity string) ([]*auth.Session, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+sessionColumns+`
		FROM sessions
		WHERE identity = $1
		ORDER BY created_at DESC
	`, identity)
	if err != nil {
		return nil, oops.Code("SESSION_LIST_FAILED").
			With("operation", "list sessions by identity").
			With("identity", identity).
			Wrap(err)
	}
	defer rows.Close()

	var sessions []*auth.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, oops.Code("SESSION_SCAN_FAILED").
				With("operation", "scan session row").
				Wrap(err)
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("SESSION_ROWS_ERROR").
			With("operation", "iterate session rows").
			Wrap(err)
	}
	return sessions, nil
}

// Invalidate marks the session invalid and returns its identity.
// Unknown hashes return "".
func (r *SessionRepository) Invalidate(ctx context.Context, tokenHash string) (string, error) {
	var identity string
	err := r.pool.QueryRow(ctx, `
		UPDATE sessions SET is_valid = FALSE
		WHERE token_hash = $1
		RETURNING identity
	`, tokenHash).Scan(&identity)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", oops.Code("SESSION_INVALIDATE_FAILED").
			With("operation", "invalidate session").
			Wrap(err)
	}
	return identity, nil
}

// DeleteUnusable removes expired and invalidated sessions.
func (r *SessionRepository) DeleteUnusable(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.pool.Exec(ctx, `
		DELETE FROM sessions WHERE expires_at <= $1 OR NOT is_valid
	`, now)
	if err != nil {
		return 0, oops.Code("SESSION_DELETE_UNUSABLE_FAILED").
			With("operation", "delete unusable sessions").
			Wrap(err)
	}
	return result.RowsAffected(), nil
}

// scanSession scans one session row. Callers handle pgx.ErrNoRows.
func scanSession(row pgx.Row) (*auth.Session, error) {
	var (
		s     auth.Session
		idStr string
	)
	if err := row.Scan(
		&idStr,
		&s.TokenHash,
		&s.Identity,
		&s.OriginAddress,
		&s.UserAgent,
		&s.CreatedAt,
		&s.ExpiresAt,
		&s.Valid,
	); err != nil {
		return nil, err //nolint:wrapcheck // callers wrap with context
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.With("operation", "parse session id").With("id", idStr).Wrap(err)
	}
	s.ID = id
	return &s, nil
}

// Compile-time interface check.
var _ auth.SessionRepository = (*SessionRepository)(nil)
