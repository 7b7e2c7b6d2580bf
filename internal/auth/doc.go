// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package auth provides the authentication and session-integrity core.
//
// # Components
//
//   - Clean, NormalizeIdentity, ValidateIdentityFormat and
//     ValidateCredentialStrength sanitize and validate untrusted input.
//   - CredentialHasher (PBKDF2Hasher) derives and verifies salted hashes.
//   - RateLimiter gates actions per origin address; implementations live in
//     internal/ratelimit.
//   - LockoutTracker advances the per-account failure counter and locks.
//   - SessionStore issues, validates and invalidates bearer sessions.
//   - AuditLog records security decisions and never fails its caller.
//   - Service orchestrates them into Register, Authenticate,
//     ValidateSession and InvalidateSession.
//
// # Errors
//
// Every error returned by Service belongs to a closed set of kinds (see
// Kind and KindOf). PublicMessage gives the text safe for end users;
// storage failures collapse to a generic server error.
//
// Repositories (AccountRepository, SessionRepository, AuditRepository) are
// implemented in internal/auth/postgres and internal/auth/memory.
package auth
