// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/samber/oops"

	"github.com/holomush/campusauth/internal/auth"
)

// SessionRepository implements auth.SessionRepository in memory.
type SessionRepository struct {
	mu       sync.RWMutex
	sessions map[string]*auth.Session // token hash -> session
}

// NewSessionRepository creates an empty SessionRepository.
func NewSessionRepository() *SessionRepository {
	return &SessionRepository{sessions: make(map[string]*auth.Session)}
}

// Create stores a new session.
func (r *SessionRepository) Create(_ context.Context, session *auth.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[session.TokenHash]; ok {
		return oops.Code("SESSION_EXISTS").With("session_id", session.ID.String()).Wrap(auth.ErrAlreadyExists)
	}
	sessionCopy := *session
	r.sessions[session.TokenHash] = &sessionCopy
	return nil
}

// GetByTokenHash retrieves a session by token hash.
func (r *SessionRepository) GetByTokenHash(_ context.Context, tokenHash string) (*auth.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.sessions[tokenHash]
	if !ok {
		return nil, oops.Code("SESSION_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	sessionCopy := *session
	return &sessionCopy, nil
}

// ListByIdentity returns the sessions of identity, newest first.
func (r *SessionRepository) ListByIdentity(_ context.Context, identity string) ([]*auth.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*auth.Session
	for _, session := range r.sessions {
		if session.Identity == identity {
			sessionCopy := *session
			out = append(out, &sessionCopy)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// Invalidate marks the session invalid and returns its identity.
func (r *SessionRepository) Invalidate(_ context.Context, tokenHash string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[tokenHash]
	if !ok {
		return "", nil
	}
	session.Valid = false
	return session.Identity, nil
}

// DeleteUnusable removes expired and invalidated sessions.
func (r *SessionRepository) DeleteUnusable(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed int64
	for hash, session := range r.sessions {
		if !session.UsableAt(now) {
			delete(r.sessions, hash)
			removed++
		}
	}
	return removed, nil
}

// Compile-time interface check.
var _ auth.SessionRepository = (*SessionRepository)(nil)
