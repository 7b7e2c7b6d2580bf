// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth_test

import (
	"errors"
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"

	"github.com/holomush/campusauth/internal/auth"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want auth.Kind
	}{
		{name: "nil", err: nil, want: ""},
		{name: "plain error", err: errors.New("boom"), want: auth.KindStorageFailure},
		{name: "unknown code", err: oops.Code("DB_DOWN").Errorf("boom"), want: auth.KindStorageFailure},
		{name: "validation", err: oops.Code(auth.CodeValidation).Errorf("bad"), want: auth.KindValidation},
		{name: "rate limited", err: oops.Code(auth.CodeRateLimited).Errorf("slow"), want: auth.KindRateLimited},
		{name: "invalid credentials", err: oops.Code(auth.CodeInvalidCredentials).Errorf("no"), want: auth.KindInvalidCredentials},
		{name: "locked", err: oops.Code(auth.CodeAccountLocked).Errorf("locked"), want: auth.KindAccountLocked},
		{name: "session", err: oops.Code(auth.CodeSessionInvalid).Errorf("gone"), want: auth.KindSessionExpiredOrUnknown},
		{name: "bare not found", err: auth.ErrNotFound, want: auth.KindNotFound},
		{name: "repository not found", err: oops.Code("PROFILE_NOT_FOUND").Wrap(auth.ErrNotFound), want: auth.KindNotFound},
		{name: "wrapped not found", err: oops.With("identity", "x").Wrap(oops.Code("ACCOUNT_NOT_FOUND").Wrap(auth.ErrNotFound)), want: auth.KindNotFound},
		{name: "user-facing code wins over not found", err: oops.Code(auth.CodeSessionInvalid).Wrap(auth.ErrNotFound), want: auth.KindSessionExpiredOrUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, auth.KindOf(tt.err))
		})
	}
}

func TestPublicMessage(t *testing.T) {
	assert.Empty(t, auth.PublicMessage(nil))
	assert.Equal(t, "server error", auth.PublicMessage(errors.New("pq: password authentication failed for user")))
	assert.Equal(t, "server error", auth.PublicMessage(oops.Code(auth.CodeStorageFailure).Errorf("dial tcp 10.0.0.5:5432")))
	assert.Equal(t, "invalid credentials", auth.PublicMessage(oops.Code(auth.CodeInvalidCredentials).Errorf("x")))
	assert.Equal(t, "password too weak", auth.PublicMessage(oops.Code(auth.CodeValidation).Errorf("password too weak")))
	assert.Equal(t, "session expired or unknown", auth.PublicMessage(oops.Code(auth.CodeSessionInvalid).Errorf("x")))
	assert.Equal(t, "too many requests, try again later", auth.PublicMessage(oops.Code(auth.CodeRateLimited).Errorf("x")))
	assert.Equal(t, "not found", auth.PublicMessage(oops.Code("PROFILE_NOT_FOUND").Wrap(auth.ErrNotFound)))
}

func TestLockRemaining(t *testing.T) {
	_, ok := auth.LockRemaining(errors.New("boom"))
	assert.False(t, ok)
	_, ok = auth.LockRemaining(nil)
	assert.False(t, ok)
}
