// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"errors"
	"time"

	"github.com/samber/oops"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrAlreadyExists is returned by repositories when a unique key is taken.
var ErrAlreadyExists = errors.New("already exists")

// Kind classifies every error the Service returns to callers.
type Kind string

// Error kinds.
const (
	KindValidation              Kind = "validation"
	KindRateLimited             Kind = "rate_limited"
	KindInvalidCredentials      Kind = "invalid_credentials"
	KindAccountLocked           Kind = "account_locked"
	KindStorageFailure          Kind = "storage_failure"
	KindSessionExpiredOrUnknown Kind = "session_expired_or_unknown"
	KindNotFound                Kind = "not_found"
)

// Error codes carried by oops errors for each Kind.
const (
	CodeValidation         = "AUTH_VALIDATION"
	CodeRateLimited        = "AUTH_RATE_LIMITED"
	CodeInvalidCredentials = "AUTH_INVALID_CREDENTIALS"
	CodeAccountLocked      = "AUTH_ACCOUNT_LOCKED"
	CodeStorageFailure     = "AUTH_STORAGE_FAILURE"
	CodeSessionInvalid     = "AUTH_SESSION_INVALID"
)

// Messages shown to callers when the underlying detail must stay internal.
const (
	msgInvalidCredentials = "invalid credentials"
	msgServerError        = "server error"
	msgRateLimited        = "too many requests, try again later"
	msgSessionInvalid     = "session expired or unknown"
	msgNotFound           = "not found"
)

var codeKinds = map[string]Kind{
	CodeValidation:         KindValidation,
	CodeRateLimited:        KindRateLimited,
	CodeInvalidCredentials: KindInvalidCredentials,
	CodeAccountLocked:      KindAccountLocked,
	CodeSessionInvalid:     KindSessionExpiredOrUnknown,
}

// KindOf classifies err. A missing entity that no user-facing code covers is
// NotFound. Anything else that is not one of the user-facing kinds,
// including plain errors and repository failures, is a storage failure.
// Returns "" for a nil error.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	if oopsErr, ok := oops.AsOops(err); ok {
		code, _ := oopsErr.Code().(string) //nolint:errcheck // type assertion, not an error
		if kind, found := codeKinds[code]; found {
			return kind
		}
	}
	if errors.Is(err, ErrNotFound) {
		return KindNotFound
	}
	return KindStorageFailure
}

// PublicMessage returns the text that is safe to show to the end user.
// Validation and lockout errors carry their own message; storage failures
// collapse to a generic server error.
func PublicMessage(err error) string {
	switch KindOf(err) {
	case "":
		return ""
	case KindValidation, KindAccountLocked:
		return err.Error()
	case KindRateLimited:
		return msgRateLimited
	case KindInvalidCredentials:
		return msgInvalidCredentials
	case KindSessionExpiredOrUnknown:
		return msgSessionInvalid
	case KindNotFound:
		return msgNotFound
	default:
		return msgServerError
	}
}

// LockRemaining reports the remaining lock duration carried by an
// AccountLocked error.
func LockRemaining(err error) (time.Duration, bool) {
	if KindOf(err) != KindAccountLocked {
		return 0, false
	}
	oopsErr, _ := oops.AsOops(err) //nolint:errcheck // KindOf already matched an oops error
	remaining, ok := oopsErr.Context()["remaining"].(time.Duration)
	return remaining, ok
}

func validationError(format string, args ...any) error {
	return oops.Code(CodeValidation).Errorf(format, args...)
}

func storageFailure(operation string, err error) error {
	return oops.Code(CodeStorageFailure).With("operation", operation).Wrap(err)
}

func invalidCredentials() error {
	return oops.Code(CodeInvalidCredentials).Errorf(msgInvalidCredentials)
}

func rateLimited(action Action) error {
	return oops.Code(CodeRateLimited).With("action", string(action)).Errorf(msgRateLimited)
}

func sessionInvalid(reason string) error {
	return oops.Code(CodeSessionInvalid).With("reason", reason).Errorf(msgSessionInvalid)
}

func accountLocked(until time.Time, now time.Time) error {
	remaining := until.Sub(now)
	if remaining < 0 {
		remaining = 0
	}
	return oops.Code(CodeAccountLocked).
		With("locked_until", until).
		With("remaining", remaining).
		Errorf("account is temporarily locked, try again in %s", remaining.Round(time.Second))
}
