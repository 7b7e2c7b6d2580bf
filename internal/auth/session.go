// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Session token configuration.
const (
	SessionTokenBytes  = 32             // 256 bits, 43 URL-safe base64 chars
	SessionTokenExpiry = 24 * time.Hour // 24 hour expiry
)

// Session is an issued bearer session. The plaintext token is never stored.
type Session struct {
	ID            ulid.ULID `json:"id" yaml:"id"`
	TokenHash     string    `json:"-" yaml:"-"`
	Identity      string    `json:"identity" yaml:"identity"`
	OriginAddress string    `json:"origin_address,omitempty" yaml:"origin_address,omitempty"`
	UserAgent     string    `json:"user_agent,omitempty" yaml:"user_agent,omitempty"`
	CreatedAt     time.Time `json:"created_at" yaml:"created_at"`
	ExpiresAt     time.Time `json:"expires_at" yaml:"expires_at"`
	Valid         bool      `json:"valid" yaml:"valid"`
}

// NewSession creates a validated Session instance.
func NewSession(identity, tokenHash, originAddress, userAgent string, createdAt, expiresAt time.Time) (*Session, error) {
	if identity == "" {
		return nil, oops.Code("SESSION_INVALID_IDENTITY").Errorf("identity cannot be empty")
	}
	if tokenHash == "" {
		return nil, oops.Code("SESSION_INVALID_HASH").Errorf("token hash cannot be empty")
	}
	if !expiresAt.After(createdAt) {
		return nil, oops.Code("SESSION_INVALID_EXPIRY").
			With("created_at", createdAt).
			With("expires_at", expiresAt).
			Errorf("expiry must be after creation")
	}
	return &Session{
		ID:            ulid.Make(),
		TokenHash:     tokenHash,
		Identity:      identity,
		OriginAddress: originAddress,
		UserAgent:     userAgent,
		CreatedAt:     createdAt,
		ExpiresAt:     expiresAt,
		Valid:         true,
	}, nil
}

// UsableAt reports whether the session is valid and unexpired at t.
func (s *Session) UsableAt(t time.Time) bool {
	return s.Valid && t.Before(s.ExpiresAt)
}

// GenerateSessionToken creates a secure random URL-safe token and its hash.
// Returns (plaintext_token, sha256_hash, error).
// The plaintext token is sent to the client; the hash is stored.
func GenerateSessionToken() (token, hash string, err error) {
	tokenBytes := make([]byte, SessionTokenBytes)
	if _, err = rand.Read(tokenBytes); err != nil {
		return "", "", oops.Code("SESSION_TOKEN_GENERATE_FAILED").
			With("operation", "crypto/rand.Read").
			With("requested_bytes", SessionTokenBytes).
			Wrap(err)
	}

	token = base64.RawURLEncoding.EncodeToString(tokenBytes)
	return token, HashSessionToken(token), nil
}

// HashSessionToken computes the hex SHA-256 of a session token.
func HashSessionToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// VerifySessionToken checks if the plaintext token matches the stored hash
// in constant time.
func VerifySessionToken(token, hash string) bool {
	if token == "" || hash == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(HashSessionToken(token)), []byte(hash)) == 1
}

// SessionRepository manages session persistence.
type SessionRepository interface {
	// Create stores a new session.
	Create(ctx context.Context, session *Session) error

	// GetByTokenHash retrieves a session by its token hash, whether or not
	// it is still usable. Returns ErrNotFound if none exists.
	GetByTokenHash(ctx context.Context, tokenHash string) (*Session, error)

	// ListByIdentity returns the sessions of identity, newest first.
	ListByIdentity(ctx context.Context, identity string) ([]*Session, error)

	// Invalidate marks the session with tokenHash invalid and returns its
	// identity. Unknown hashes return "" and already invalid sessions are
	// not an error.
	Invalidate(ctx context.Context, tokenHash string) (string, error)

	// DeleteUnusable removes sessions that expired before now or were
	// invalidated, returning the count removed.
	DeleteUnusable(ctx context.Context, now time.Time) (int64, error)
}

// SessionStore issues, validates, and invalidates sessions.
type SessionStore struct {
	repo  SessionRepository
	audit *AuditLog
	ttl   time.Duration
	now   func() time.Time
}

// NewSessionStore creates a SessionStore. A zero ttl uses SessionTokenExpiry.
func NewSessionStore(repo SessionRepository, audit *AuditLog, ttl time.Duration, now func() time.Time) (*SessionStore, error) {
	if repo == nil {
		return nil, oops.Errorf("session repository is required")
	}
	if audit == nil {
		return nil, oops.Errorf("audit log is required")
	}
	if ttl < 0 {
		return nil, oops.With("ttl", ttl).Errorf("session ttl cannot be negative")
	}
	if ttl == 0 {
		ttl = SessionTokenExpiry
	}
	if now == nil {
		now = time.Now
	}
	return &SessionStore{repo: repo, audit: audit, ttl: ttl, now: now}, nil
}

// Issue creates a session for identity and returns the plaintext token.
func (s *SessionStore) Issue(ctx context.Context, identity, originAddress, userAgent string) (string, *Session, error) {
	token, tokenHash, err := GenerateSessionToken()
	if err != nil {
		return "", nil, storageFailure("generate session token", err)
	}

	now := s.now()
	session, err := NewSession(identity, tokenHash, originAddress, userAgent, now, now.Add(s.ttl))
	if err != nil {
		return "", nil, storageFailure("build session", err)
	}

	if err := s.repo.Create(ctx, session); err != nil {
		return "", nil, storageFailure("persist session", err)
	}
	return token, session, nil
}

// Validate returns the session for token if it is valid and unexpired.
// A differing origin address does not fail the lookup; it is audited.
func (s *SessionStore) Validate(ctx context.Context, token, originAddress string) (*Session, error) {
	if token == "" {
		return nil, sessionInvalid("empty token")
	}

	session, err := s.repo.GetByTokenHash(ctx, HashSessionToken(token))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, sessionInvalid("unknown")
		}
		return nil, storageFailure("get session by token hash", err)
	}

	now := s.now()
	if !session.Valid {
		return nil, sessionInvalid("invalidated")
	}
	if !session.UsableAt(now) {
		return nil, sessionInvalid("expired")
	}

	if originAddress != "" && session.OriginAddress != "" && originAddress != session.OriginAddress {
		s.audit.Record(ctx, AuditEvent{
			OccurredAt:    now,
			OriginAddress: originAddress,
			Kind:          EventSessionIPMismatch,
			Identity:      session.Identity,
			Success:       false,
			ErrorDetail:   "session issued to " + session.OriginAddress,
		})
	}

	return session, nil
}

// Invalidate marks the session for token invalid and returns the identity
// it belonged to, or "" for an unknown token. It is idempotent.
func (s *SessionStore) Invalidate(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", nil
	}
	identity, err := s.repo.Invalidate(ctx, HashSessionToken(token))
	if err != nil {
		return "", storageFailure("invalidate session", err)
	}
	return identity, nil
}

// ListForIdentity returns all stored sessions of identity.
func (s *SessionStore) ListForIdentity(ctx context.Context, identity string) ([]*Session, error) {
	sessions, err := s.repo.ListByIdentity(ctx, identity)
	if err != nil {
		return nil, storageFailure("list sessions", err)
	}
	return sessions, nil
}

// Purge deletes expired and invalidated sessions.
func (s *SessionStore) Purge(ctx context.Context) (int64, error) {
	n, err := s.repo.DeleteUnusable(ctx, s.now())
	if err != nil {
		return 0, storageFailure("purge sessions", err)
	}
	return n, nil
}
