// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/holomush/campusauth/pkg/errutil"
)

// EventKind identifies a security-relevant decision.
type EventKind string

// Audit event kinds.
const (
	EventRegister          EventKind = "register"
	EventLoginAttempt      EventKind = "login_attempt"
	EventLogin             EventKind = "login"
	EventLoginFailed       EventKind = "login_failed"
	EventAccountLocked     EventKind = "account_locked"
	EventLoginError        EventKind = "login_error"
	EventSessionIPMismatch EventKind = "session_ip_mismatch"
	EventLogout            EventKind = "logout"
)

// EventKinds returns every audit event kind.
func EventKinds() []EventKind {
	return []EventKind{
		EventRegister,
		EventLoginAttempt,
		EventLogin,
		EventLoginFailed,
		EventAccountLocked,
		EventLoginError,
		EventSessionIPMismatch,
		EventLogout,
	}
}

// AuditEvent is an immutable record of a security decision.
// Seq is assigned by the repository on append.
type AuditEvent struct {
	Seq           int64     `json:"seq" yaml:"seq"`
	ID            ulid.ULID `json:"id" yaml:"id"`
	OccurredAt    time.Time `json:"occurred_at" yaml:"occurred_at"`
	OriginAddress string    `json:"origin_address,omitempty" yaml:"origin_address,omitempty"`
	Kind          EventKind `json:"kind" yaml:"kind"`
	Identity      string    `json:"identity,omitempty" yaml:"identity,omitempty"`
	Success       bool      `json:"success" yaml:"success"`
	ErrorDetail   string    `json:"error_detail,omitempty" yaml:"error_detail,omitempty"`
	UserAgent     string    `json:"user_agent,omitempty" yaml:"user_agent,omitempty"`
}

// AuditFilter narrows AuditLog.List. Zero values match everything.
type AuditFilter struct {
	Identity string
	Kind     EventKind
	Since    time.Time
	Limit    int
}

// DefaultAuditListLimit caps List when the filter sets no limit.
const DefaultAuditListLimit = 100

// AuditRepository stores audit events append-only.
type AuditRepository interface {
	// Append stores event and sets its Seq.
	Append(ctx context.Context, event *AuditEvent) error

	// List returns matching events ordered by (OccurredAt, Seq).
	List(ctx context.Context, filter AuditFilter) ([]AuditEvent, error)
}

// AuditLog records security events without ever failing its caller.
type AuditLog struct {
	repo    AuditRepository
	logger  *slog.Logger
	metrics MetricsRecorder
	now     func() time.Time
}

// NewAuditLog creates an AuditLog. A nil logger uses slog.Default and a nil
// clock uses time.Now.
func NewAuditLog(repo AuditRepository, logger *slog.Logger, metrics MetricsRecorder, now func() time.Time) (*AuditLog, error) {
	if repo == nil {
		return nil, oops.Errorf("audit repository is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = NopMetrics{}
	}
	if now == nil {
		now = time.Now
	}
	return &AuditLog{repo: repo, logger: logger, metrics: metrics, now: now}, nil
}

// Record appends event. ID and OccurredAt are filled in when unset.
// A repository failure is logged as a warning and otherwise ignored.
func (l *AuditLog) Record(ctx context.Context, event AuditEvent) {
	if event.ID.Compare(ulid.ULID{}) == 0 {
		event.ID = ulid.Make()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = l.now()
	}

	if err := l.repo.Append(ctx, &event); err != nil {
		l.metrics.RecordAuditFailure()
		errutil.LogWarn(l.logger, "audit event not recorded",
			oops.With("kind", string(event.Kind)).With("identity", event.Identity).Wrap(err))
	}
}

// List returns recorded events matching filter.
func (l *AuditLog) List(ctx context.Context, filter AuditFilter) ([]AuditEvent, error) {
	if filter.Limit <= 0 {
		filter.Limit = DefaultAuditListLimit
	}
	events, err := l.repo.List(ctx, filter)
	if err != nil {
		return nil, oops.With("operation", "list audit events").Wrap(err)
	}
	return events, nil
}
