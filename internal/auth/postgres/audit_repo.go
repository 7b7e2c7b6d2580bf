// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package postgres

import (
	"context"
	"slices"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/holomush/campusauth/internal/auth"
)

// AuditRepository implements auth.AuditRepository using PostgreSQL.
type AuditRepository struct {
	pool poolIface
}

// NewAuditRepository creates a new AuditRepository.
func NewAuditRepository(pool poolIface) *AuditRepository {
	return &AuditRepository{pool: pool}
}

// Append inserts event and sets its Seq from the sequence.
func (r *AuditRepository) Append(ctx context.Context, event *auth.AuditEvent) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO audit_events (id, occurred_at, origin_address, event_kind, identity, success, error_detail, user_agent)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING seq
	`,
		event.ID.String(),
		event.OccurredAt,
		event.OriginAddress,
		string(event.Kind),
		event.Identity,
		event.Success,
		event.ErrorDetail,
		event.UserAgent,
	).Scan(&event.Seq)
	if err != nil {
		return oops.Code("AUDIT_APPEND_FAILED").
			With("operation", "insert audit event").
			With("kind", string(event.Kind)).
			Wrap(err)
	}
	return nil
}

// List returns the most recent events matching filter, oldest first.
// A non-positive limit returns every match.
func (r *AuditRepository) List(ctx context.Context, filter auth.AuditFilter) ([]auth.AuditEvent, error) {
	var since *time.Time
	if !filter.Since.IsZero() {
		since = &filter.Since
	}
	var limit *int
	if filter.Limit > 0 {
		limit = &filter.Limit
	}

	rows, err := r.pool.Query(ctx, `
		SELECT seq, id, occurred_at, origin_address, event_kind, identity, success, error_detail, user_agent
		FROM audit_events
		WHERE ($1 = '' OR identity = $1)
		  AND ($2 = '' OR event_kind = $2)
		  AND ($3::timestamptz IS NULL OR occurred_at >= $3)
		ORDER BY occurred_at DESC, seq DESC
		LIMIT $4
	`, filter.Identity, string(filter.Kind), since, limit)
	if err != nil {
		return nil, oops.Code("AUDIT_LIST_FAILED").
			With("operation", "list audit events").
			Wrap(err)
	}
	defer rows.Close()

	var events []auth.AuditEvent
	for rows.Next() {
		var (
			e     auth.AuditEvent
			idStr string
			kind  string
		)
		if err := rows.Scan(&e.Seq, &idStr, &e.OccurredAt, &e.OriginAddress, &kind, &e.Identity, &e.Success, &e.ErrorDetail, &e.UserAgent); err != nil {
			return nil, oops.Code("AUDIT_SCAN_FAILED").With("operation", "scan audit row").Wrap(err)
		}
		id, err := ulid.Parse(idStr)
		if err != nil {
			return nil, oops.Code("AUDIT_SCAN_FAILED").
				With("operation", "parse audit event id").
				With("id", idStr).
				Wrap(err)
		}
		e.ID = id
		e.Kind = auth.EventKind(kind)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("AUDIT_ROWS_ERROR").With("operation", "iterate audit rows").Wrap(err)
	}

	slices.Reverse(events)
	return events, nil
}

// Compile-time interface check.
var _ auth.AuditRepository = (*AuditRepository)(nil)
