// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/holomush/campusauth/internal/auth"
)

// AuditRepository implements auth.AuditRepository in memory.
type AuditRepository struct {
	mu     sync.RWMutex
	events []auth.AuditEvent
	seq    int64
}

// NewAuditRepository creates an empty AuditRepository.
func NewAuditRepository() *AuditRepository {
	return &AuditRepository{}
}

// Append stores event and assigns the next sequence number.
func (r *AuditRepository) Append(_ context.Context, event *auth.AuditEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	event.Seq = r.seq
	r.events = append(r.events, *event)
	return nil
}

// List returns matching events ordered by (OccurredAt, Seq).
func (r *AuditRepository) List(_ context.Context, filter auth.AuditFilter) ([]auth.AuditEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []auth.AuditEvent
	for _, event := range r.events {
		if filter.Identity != "" && event.Identity != filter.Identity {
			continue
		}
		if filter.Kind != "" && event.Kind != filter.Kind {
			continue
		}
		if !filter.Since.IsZero() && event.OccurredAt.Before(filter.Since) {
			continue
		}
		out = append(out, event)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].OccurredAt.Equal(out[j].OccurredAt) {
			return out[i].OccurredAt.Before(out[j].OccurredAt)
		}
		return out[i].Seq < out[j].Seq
	})

	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[len(out)-filter.Limit:]
	}
	return out, nil
}

// Compile-time interface check.
var _ auth.AuditRepository = (*AuditRepository)(nil)
