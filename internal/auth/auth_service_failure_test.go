// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/holomush/campusauth/internal/auth"
	"github.com/holomush/campusauth/internal/auth/memory"
	"github.com/holomush/campusauth/internal/auth/mocks"
	"github.com/holomush/campusauth/pkg/errutil"
)

type mockFixture struct {
	svc      *auth.Service
	accounts *mocks.MockAccountRepository
	sessions *mocks.MockSessionRepository
	hasher   *mocks.MockCredentialHasher
	limiter  *mocks.MockRateLimiter
	audit    *memory.AuditRepository
	logs     *bytes.Buffer
}

func newMockFixture(t *testing.T) *mockFixture {
	t.Helper()
	f := &mockFixture{
		accounts: mocks.NewMockAccountRepository(t),
		sessions: mocks.NewMockSessionRepository(t),
		hasher:   mocks.NewMockCredentialHasher(t),
		limiter:  mocks.NewMockRateLimiter(t),
		audit:    memory.NewAuditRepository(),
		logs:     &bytes.Buffer{},
	}
	svc, err := auth.NewService(auth.ServiceConfig{
		Accounts: f.accounts,
		Sessions: f.sessions,
		Audit:    f.audit,
		Hasher:   f.hasher,
		Limiter:  f.limiter,
		Logger:   slog.New(slog.NewJSONHandler(f.logs, nil)),
	})
	require.NoError(t, err)
	f.svc = svc
	return f
}

func storedAccount() *auth.Account {
	return &auth.Account{Identity: testIdentity, CredentialHash: "stored-hash", CredentialSalt: "stored-salt"}
}

func TestService_RateLimiting(t *testing.T) {
	ctx := context.Background()

	t.Run("denied login never touches storage", func(t *testing.T) {
		f := newMockFixture(t)
		f.limiter.On("Allow", mock.Anything, "10.0.0.1", auth.ActionLogin).Return(false, nil)

		_, err := f.svc.Authenticate(ctx, auth.AuthenticateRequest{Identity: testIdentity, Credential: testCredential, OriginAddress: "10.0.0.1"})
		require.Error(t, err)
		assert.Equal(t, auth.KindRateLimited, auth.KindOf(err))
		errutil.AssertErrorContext(t, err, "action", "login")
	})

	t.Run("denied register never touches storage", func(t *testing.T) {
		f := newMockFixture(t)
		f.limiter.On("Allow", mock.Anything, "10.0.0.1", auth.ActionRegister).Return(false, nil)

		_, err := f.svc.Register(ctx, auth.RegisterRequest{Identity: testIdentity, Credential: testCredential, Nickname: "ada", OriginAddress: "10.0.0.1"})
		assert.Equal(t, auth.KindRateLimited, auth.KindOf(err))
	})

	t.Run("limiter error fails open", func(t *testing.T) {
		f := newMockFixture(t)
		f.limiter.On("Allow", mock.Anything, "10.0.0.1", auth.ActionLogin).Return(false, errors.New("redis: connection refused"))
		f.accounts.On("GetByIdentity", mock.Anything, testIdentity).Return(nil, auth.ErrNotFound)
		f.hasher.On("Verify", testCredential, mock.AnythingOfType("string"), mock.AnythingOfType("string")).Return(false, nil)

		_, err := f.svc.Authenticate(ctx, auth.AuthenticateRequest{Identity: testIdentity, Credential: testCredential, OriginAddress: "10.0.0.1"})
		assert.Equal(t, auth.KindInvalidCredentials, auth.KindOf(err))
		assert.Contains(t, f.logs.String(), "rate limiter unavailable")
	})
}

func TestService_AuthenticateStorageFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("account lookup failure", func(t *testing.T) {
		f := newMockFixture(t)
		f.limiter.On("Allow", mock.Anything, "", auth.ActionLogin).Return(true, nil)
		f.accounts.On("GetByIdentity", mock.Anything, testIdentity).Return(nil, errors.New("dial tcp 10.0.0.5:5432: connection refused"))

		_, err := f.svc.Authenticate(ctx, auth.AuthenticateRequest{Identity: testIdentity, Credential: testCredential})
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, auth.CodeStorageFailure)
		assert.Equal(t, "server error", auth.PublicMessage(err))

		events, listErr := f.audit.List(ctx, auth.AuditFilter{Kind: auth.EventLoginError})
		require.NoError(t, listErr)
		require.Len(t, events, 1)
	})

	t.Run("session issue failure is a server error", func(t *testing.T) {
		f := newMockFixture(t)
		f.limiter.On("Allow", mock.Anything, "", auth.ActionLogin).Return(true, nil)
		f.accounts.On("GetByIdentity", mock.Anything, testIdentity).Return(storedAccount(), nil)
		f.hasher.On("Verify", testCredential, "stored-hash", "stored-salt").Return(true, nil)
		f.accounts.On("RecordLogin", mock.Anything, testIdentity, mock.AnythingOfType("time.Time")).Return(nil)
		f.sessions.On("Create", mock.Anything, mock.AnythingOfType("*auth.Session")).Return(errors.New("relation \"sessions\" does not exist"))

		result, err := f.svc.Authenticate(ctx, auth.AuthenticateRequest{Identity: testIdentity, Credential: testCredential})
		require.Error(t, err)
		assert.Nil(t, result)
		errutil.AssertErrorCode(t, err, auth.CodeStorageFailure)
		assert.Equal(t, "server error", auth.PublicMessage(err))
		assert.False(t, strings.Contains(auth.PublicMessage(err), "sessions"))
	})

	t.Run("locked account never hashes", func(t *testing.T) {
		f := newMockFixture(t)
		account := storedAccount()
		until := time.Now().Add(time.Hour)
		account.FailedAttempts = 5
		account.LockedUntil = &until
		f.limiter.On("Allow", mock.Anything, "", auth.ActionLogin).Return(true, nil)
		f.accounts.On("GetByIdentity", mock.Anything, testIdentity).Return(account, nil)

		_, err := f.svc.Authenticate(ctx, auth.AuthenticateRequest{Identity: testIdentity, Credential: testCredential})
		assert.Equal(t, auth.KindAccountLocked, auth.KindOf(err))
		f.hasher.AssertNotCalled(t, "Verify", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("malformed stored hash is a server error", func(t *testing.T) {
		f := newMockFixture(t)
		f.limiter.On("Allow", mock.Anything, "", auth.ActionLogin).Return(true, nil)
		f.accounts.On("GetByIdentity", mock.Anything, testIdentity).Return(storedAccount(), nil)
		f.hasher.On("Verify", testCredential, "stored-hash", "stored-salt").Return(false, errors.New("invalid hash"))

		_, err := f.svc.Authenticate(ctx, auth.AuthenticateRequest{Identity: testIdentity, Credential: testCredential})
		assert.Equal(t, auth.KindStorageFailure, auth.KindOf(err))
	})

	t.Run("profile failure after login is tolerated", func(t *testing.T) {
		f := newMockFixture(t)
		f.limiter.On("Allow", mock.Anything, "", auth.ActionLogin).Return(true, nil)
		f.accounts.On("GetByIdentity", mock.Anything, testIdentity).Return(storedAccount(), nil)
		f.hasher.On("Verify", testCredential, "stored-hash", "stored-salt").Return(true, nil)
		f.accounts.On("RecordLogin", mock.Anything, testIdentity, mock.AnythingOfType("time.Time")).Return(nil)
		f.sessions.On("Create", mock.Anything, mock.AnythingOfType("*auth.Session")).Return(nil)
		f.accounts.On("GetProfile", mock.Anything, testIdentity).Return(nil, errors.New("timeout"))

		result, err := f.svc.Authenticate(ctx, auth.AuthenticateRequest{Identity: testIdentity, Credential: testCredential})
		require.NoError(t, err)
		assert.Nil(t, result.Profile)
		assert.NotEmpty(t, result.Token)
	})
}

func TestService_RegisterStorageFailures(t *testing.T) {
	ctx := context.Background()
	req := auth.RegisterRequest{Identity: testIdentity, Credential: testCredential, Nickname: "ada"}

	t.Run("create failure is a server error", func(t *testing.T) {
		f := newMockFixture(t)
		f.limiter.On("Allow", mock.Anything, "", auth.ActionRegister).Return(true, nil)
		f.accounts.On("IdentityExists", mock.Anything, testIdentity).Return(false, nil)
		f.accounts.On("NicknameExists", mock.Anything, "ada").Return(false, nil)
		f.hasher.On("Hash", testCredential, "").Return("hash", "salt", nil)
		f.accounts.On("Create", mock.Anything, mock.AnythingOfType("*auth.Account"), mock.AnythingOfType("*auth.Profile"), "").
			Return(errors.New("could not serialize access"))

		_, err := f.svc.Register(ctx, req)
		errutil.AssertErrorCode(t, err, auth.CodeStorageFailure)
		assert.Equal(t, "server error", auth.PublicMessage(err))

		events, listErr := f.audit.List(ctx, auth.AuditFilter{Kind: auth.EventRegister})
		require.NoError(t, listErr)
		require.Len(t, events, 1)
		assert.False(t, events[0].Success)
	})

	t.Run("concurrent duplicate surfaces as validation", func(t *testing.T) {
		f := newMockFixture(t)
		f.limiter.On("Allow", mock.Anything, "", auth.ActionRegister).Return(true, nil)
		f.accounts.On("IdentityExists", mock.Anything, testIdentity).Return(false, nil)
		f.accounts.On("NicknameExists", mock.Anything, "ada").Return(false, nil)
		f.hasher.On("Hash", testCredential, "").Return("hash", "salt", nil)
		f.accounts.On("Create", mock.Anything, mock.Anything, mock.Anything, "").Return(auth.ErrAlreadyExists)

		_, err := f.svc.Register(ctx, req)
		assert.Equal(t, auth.KindValidation, auth.KindOf(err))
	})

	t.Run("existence check failure stops before hashing", func(t *testing.T) {
		f := newMockFixture(t)
		f.limiter.On("Allow", mock.Anything, "", auth.ActionRegister).Return(true, nil)
		f.accounts.On("IdentityExists", mock.Anything, testIdentity).Return(false, errors.New("timeout"))

		_, err := f.svc.Register(ctx, req)
		assert.Equal(t, auth.KindStorageFailure, auth.KindOf(err))
		f.hasher.AssertNotCalled(t, "Hash", mock.Anything, mock.Anything)
	})
}

func TestService_AuditFailureDoesNotBlockLogin(t *testing.T) {
	ctx := context.Background()
	auditRepo := mocks.NewMockAuditRepository(t)
	auditRepo.On("Append", mock.Anything, mock.Anything).Return(errors.New("audit table locked"))

	accounts := memory.NewAccountRepository()
	svc, err := auth.NewService(auth.ServiceConfig{
		Accounts: accounts,
		Sessions: memory.NewSessionRepository(),
		Audit:    auditRepo,
		Hasher:   auth.NewPBKDF2Hasher(0),
		Limiter:  auth.AllowAll{},
		Logger:   slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)),
	})
	require.NoError(t, err)

	_, err = svc.Register(ctx, auth.RegisterRequest{Identity: testIdentity, Credential: testCredential, Nickname: "ada"})
	require.NoError(t, err)
	result, err := svc.Authenticate(ctx, auth.AuthenticateRequest{Identity: testIdentity, Credential: testCredential})
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)
}
