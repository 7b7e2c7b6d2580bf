// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/campusauth/internal/auth"
	"github.com/holomush/campusauth/pkg/errutil"
)

var sessionRowColumns = []string{"id", "token_hash", "identity", "origin_address", "user_agent", "created_at", "expires_at", "is_valid"}

func testSession(t *testing.T) *auth.Session {
	t.Helper()
	created := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	session, err := auth.NewSession("ada@example.edu", "hash-1", "10.0.0.7", "curl/8.0", created, created.Add(24*time.Hour))
	require.NoError(t, err)
	return session
}

func TestSessionRepository_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("inserts row", func(t *testing.T) {
		mock := newMockPool(t)
		session := testSession(t)
		mock.ExpectExec(`INSERT INTO sessions`).
			WithArgs(session.ID.String(), "hash-1", "ada@example.edu", "10.0.0.7", "curl/8.0", session.CreatedAt, session.ExpiresAt, true).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		require.NoError(t, NewSessionRepository(mock).Create(ctx, session))
	})

	t.Run("duplicate token hash", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectExec(`INSERT INTO sessions`).WithArgs(anyArgs(8)...).
			WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "sessions_token_hash_key"})

		err := NewSessionRepository(mock).Create(ctx, testSession(t))
		require.ErrorIs(t, err, auth.ErrAlreadyExists)
		errutil.AssertErrorCode(t, err, "SESSION_EXISTS")
	})

	t.Run("other failure", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectExec(`INSERT INTO sessions`).WithArgs(anyArgs(8)...).WillReturnError(errors.New("connection reset"))

		err := NewSessionRepository(mock).Create(ctx, testSession(t))
		errutil.AssertErrorCode(t, err, "SESSION_CREATE_FAILED")
	})
}

func TestSessionRepository_GetByTokenHash(t *testing.T) {
	ctx := context.Background()
	created := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	id := ulid.Make()

	t.Run("found", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectQuery(`FROM sessions\s+WHERE token_hash = \$1`).
			WithArgs("hash-1").
			WillReturnRows(pgxmock.NewRows(sessionRowColumns).
				AddRow(id.String(), "hash-1", "ada@example.edu", "10.0.0.7", "curl/8.0", created, created.Add(time.Hour), true))

		session, err := NewSessionRepository(mock).GetByTokenHash(ctx, "hash-1")
		require.NoError(t, err)
		assert.Equal(t, id, session.ID)
		assert.Equal(t, "ada@example.edu", session.Identity)
		assert.True(t, session.Valid)
	})

	t.Run("not found", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectQuery(`FROM sessions`).WithArgs("missing").WillReturnError(pgx.ErrNoRows)

		_, err := NewSessionRepository(mock).GetByTokenHash(ctx, "missing")
		require.ErrorIs(t, err, auth.ErrNotFound)
	})

	t.Run("corrupt id", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectQuery(`FROM sessions`).WithArgs("hash-1").
			WillReturnRows(pgxmock.NewRows(sessionRowColumns).
				AddRow("not-a-ulid", "hash-1", "ada@example.edu", "", "", created, created.Add(time.Hour), true))

		_, err := NewSessionRepository(mock).GetByTokenHash(ctx, "hash-1")
		require.Error(t, err)
		assert.NotErrorIs(t, err, auth.ErrNotFound)
		errutil.AssertErrorCode(t, err, "SESSION_GET_BY_TOKEN_FAILED")
	})
}

func TestSessionRepository_ListByIdentity(t *testing.T) {
	ctx := context.Background()
	created := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	newer, older := ulid.Make(), ulid.Make()

	mock := newMockPool(t)
	mock.ExpectQuery(`ORDER BY created_at DESC`).
		WithArgs("ada@example.edu").
		WillReturnRows(pgxmock.NewRows(sessionRowColumns).
			AddRow(newer.String(), "hash-2", "ada@example.edu", "", "", created.Add(time.Minute), created.Add(time.Hour), true).
			AddRow(older.String(), "hash-1", "ada@example.edu", "", "", created, created.Add(time.Hour), false))

	sessions, err := NewSessionRepository(mock).ListByIdentity(ctx, "ada@example.edu")
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, newer, sessions[0].ID)
	assert.False(t, sessions[1].Valid)
}

func TestSessionRepository_Invalidate(t *testing.T) {
	ctx := context.Background()

	t.Run("returns owner", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectQuery(`UPDATE sessions SET is_valid = FALSE`).
			WithArgs("hash-1").
			WillReturnRows(pgxmock.NewRows([]string{"identity"}).AddRow("ada@example.edu"))

		identity, err := NewSessionRepository(mock).Invalidate(ctx, "hash-1")
		require.NoError(t, err)
		assert.Equal(t, "ada@example.edu", identity)
	})

	t.Run("unknown hash is not an error", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectQuery(`UPDATE sessions`).WithArgs("missing").WillReturnError(pgx.ErrNoRows)

		identity, err := NewSessionRepository(mock).Invalidate(ctx, "missing")
		require.NoError(t, err)
		assert.Empty(t, identity)
	})

	t.Run("failure", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectQuery(`UPDATE sessions`).WithArgs("hash-1").WillReturnError(errors.New("connection reset"))

		_, err := NewSessionRepository(mock).Invalidate(ctx, "hash-1")
		errutil.AssertErrorCode(t, err, "SESSION_INVALIDATE_FAILED")
	})
}

func TestSessionRepository_DeleteUnusable(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	mock := newMockPool(t)
	mock.ExpectExec(`DELETE FROM sessions WHERE expires_at <= \$1 OR NOT is_valid`).
		WithArgs(now).
		WillReturnResult(pgxmock.NewResult("DELETE", 3))

	removed, err := NewSessionRepository(mock).DeleteUnusable(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, int64(3), removed)
}
