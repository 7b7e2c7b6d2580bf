// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/holomush/campusauth/pkg/errutil"
)

var tracer = otel.Tracer("github.com/holomush/campusauth/internal/auth")

// dummyCredentialHash and dummyCredentialSalt are verified against when an
// identity does not exist so unknown and known identities cost the same.
// They are not credentials; no password derives this hash.
//
//nolint:gosec // G101: intentionally fake hash for timing equalization.
const (
	dummyCredentialHash = "0000000000000000000000000000000000000000000000000000000000000000"
	dummyCredentialSalt = "00000000000000000000000000000000"
)

// ServiceConfig wires a Service.
type ServiceConfig struct {
	Accounts AccountRepository
	Sessions SessionRepository
	Audit    AuditRepository
	Hasher   CredentialHasher
	Limiter  RateLimiter

	// Lockout defaults to DefaultLockoutPolicy when zero.
	Lockout LockoutPolicy
	// SessionTTL defaults to SessionTokenExpiry when zero.
	SessionTTL time.Duration

	Logger  *slog.Logger
	Metrics MetricsRecorder
	Now     func() time.Time
}

// Service orchestrates registration, authentication and sessions.
type Service struct {
	accounts AccountRepository
	hasher   CredentialHasher
	limiter  RateLimiter
	lockout  *LockoutTracker
	sessions *SessionStore
	audit    *AuditLog
	logger   *slog.Logger
	metrics  MetricsRecorder
	now      func() time.Time
}

// RegisterRequest carries the fields of a registration.
type RegisterRequest struct {
	Identity      string
	Credential    string
	Nickname      string
	FullName      string
	GroupID       string
	OriginAddress string
	UserAgent     string
}

// AuthenticateRequest carries the fields of a login.
type AuthenticateRequest struct {
	Identity      string
	Credential    string
	OriginAddress string
	UserAgent     string
}

// AuthResult is returned by a successful Authenticate.
type AuthResult struct {
	Identity  string    `json:"identity" yaml:"identity"`
	Profile   *Profile  `json:"profile,omitempty" yaml:"profile,omitempty"`
	Token     string    `json:"session_token" yaml:"session_token"`
	ExpiresAt time.Time `json:"expires_at" yaml:"expires_at"`
}

// NewService creates a Service after checking its dependencies.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Accounts == nil {
		return nil, oops.Errorf("accounts repository is required")
	}
	if cfg.Sessions == nil {
		return nil, oops.Errorf("sessions repository is required")
	}
	if cfg.Audit == nil {
		return nil, oops.Errorf("audit repository is required")
	}
	if cfg.Hasher == nil {
		return nil, oops.Errorf("credential hasher is required")
	}
	if cfg.Limiter == nil {
		return nil, oops.Errorf("rate limiter is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = NopMetrics{}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Lockout == (LockoutPolicy{}) {
		cfg.Lockout = DefaultLockoutPolicy()
	}

	audit, err := NewAuditLog(cfg.Audit, cfg.Logger, cfg.Metrics, cfg.Now)
	if err != nil {
		return nil, err
	}
	lockout, err := NewLockoutTracker(cfg.Accounts, cfg.Lockout, cfg.Now)
	if err != nil {
		return nil, err
	}
	sessions, err := NewSessionStore(cfg.Sessions, audit, cfg.SessionTTL, cfg.Now)
	if err != nil {
		return nil, err
	}

	return &Service{
		accounts: cfg.Accounts,
		hasher:   cfg.Hasher,
		limiter:  cfg.Limiter,
		lockout:  lockout,
		sessions: sessions,
		audit:    audit,
		logger:   cfg.Logger,
		metrics:  cfg.Metrics,
		now:      cfg.Now,
	}, nil
}

// Register creates an account and its profile and returns the stored
// identity.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (identity string, err error) {
	ctx, span := tracer.Start(ctx, "auth.Register")
	defer func() { s.finish(span, "register", err) }()

	if err := s.gate(ctx, req.OriginAddress, ActionRegister); err != nil {
		return "", err
	}

	identity = NormalizeIdentity(req.Identity)
	if !ValidateIdentityFormat(identity) || Clean(identity, MaxIdentityLength) != identity {
		return "", validationError("invalid email format")
	}

	nickname := Clean(req.Nickname, MaxNicknameLength)
	if nickname == "" {
		return "", validationError("nickname is required")
	}
	fullName := Clean(req.FullName, MaxFullNameLength)
	groupID := Clean(req.GroupID, MaxGroupIDLength)

	if err := ValidateCredentialStrength(req.Credential); err != nil {
		return "", err
	}

	exists, err := s.accounts.IdentityExists(ctx, identity)
	if err != nil {
		return "", s.registerFailed(ctx, req, identity, "check identity", err)
	}
	if exists {
		return "", validationError("an account with this email already exists")
	}

	taken, err := s.accounts.NicknameExists(ctx, nickname)
	if err != nil {
		return "", s.registerFailed(ctx, req, identity, "check nickname", err)
	}
	if taken {
		return "", validationError("this nickname is already taken")
	}

	hash, salt, err := s.hasher.Hash(req.Credential, "")
	if err != nil {
		return "", s.registerFailed(ctx, req, identity, "hash credential", err)
	}

	account := &Account{
		Identity:       identity,
		CredentialHash: hash,
		CredentialSalt: salt,
		CreatedAt:      s.now(),
	}
	profile := NewProfile(identity, nickname, fullName)
	if groupID != "" {
		profile.Groups = []string{groupID}
	}

	if err := s.accounts.Create(ctx, account, profile, groupID); err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			s.audit.Record(ctx, AuditEvent{
				OriginAddress: req.OriginAddress,
				Kind:          EventRegister,
				Identity:      identity,
				UserAgent:     req.UserAgent,
				ErrorDetail:   "identity or nickname taken concurrently",
			})
			return "", validationError("an account with this email or nickname already exists")
		}
		return "", s.registerFailed(ctx, req, identity, "create account", err)
	}

	s.audit.Record(ctx, AuditEvent{
		OriginAddress: req.OriginAddress,
		Kind:          EventRegister,
		Identity:      identity,
		Success:       true,
		UserAgent:     req.UserAgent,
	})
	s.logger.InfoContext(ctx, "account registered", "identity", identity)
	return identity, nil
}

// Authenticate verifies a credential and issues a session.
// Unknown identities and wrong passwords return the same InvalidCredentials
// error. A locked account is refused before any hashing.
func (s *Service) Authenticate(ctx context.Context, req AuthenticateRequest) (result *AuthResult, err error) {
	ctx, span := tracer.Start(ctx, "auth.Authenticate")
	defer func() { s.finish(span, "authenticate", err) }()

	if err := s.gate(ctx, req.OriginAddress, ActionLogin); err != nil {
		return nil, err
	}

	normalized := NormalizeIdentity(req.Identity)
	identity := Clean(normalized, MaxIdentityLength)
	event := AuditEvent{
		OriginAddress: req.OriginAddress,
		Identity:      identity,
		UserAgent:     req.UserAgent,
	}

	// An identity altered by Clean was never registrable, so its cleaned
	// form must not reach another account.
	var account *Account
	err = ErrNotFound
	if identity == normalized {
		account, err = s.accounts.GetByIdentity(ctx, identity)
	}
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// Equalize timing with the known-identity path; the result is irrelevant.
			_, _ = s.hasher.Verify(req.Credential, dummyCredentialHash, dummyCredentialSalt) //nolint:errcheck // timing only
			s.audit.Record(ctx, withKind(event, EventLoginAttempt, false, "unknown identity"))
			return nil, invalidCredentials()
		}
		return nil, s.loginFailed(ctx, event, "get account", err)
	}
	s.audit.Record(ctx, withKind(event, EventLoginAttempt, true, ""))

	now := s.now()
	if state := account.Lockout(); state.IsLockedAt(now) {
		s.audit.Record(ctx, withKind(event, EventLoginError, false, "account locked"))
		return nil, accountLocked(*state.LockedUntil, now)
	}

	valid, err := s.hasher.Verify(req.Credential, account.CredentialHash, account.CredentialSalt)
	if err != nil {
		return nil, s.loginFailed(ctx, event, "verify credential", err)
	}

	if !valid {
		return nil, s.handleMismatch(ctx, event, now)
	}

	if err := s.lockout.RecordSuccess(ctx, identity); err != nil {
		return nil, s.loginFailed(ctx, event, "reset lockout", err)
	}

	token, session, err := s.sessions.Issue(ctx, identity, req.OriginAddress, req.UserAgent)
	if err != nil {
		return nil, s.loginFailed(ctx, event, "issue session", err)
	}

	profile, err := s.accounts.GetProfile(ctx, identity)
	if err != nil {
		errutil.LogWarn(s.logger, "profile unavailable after login",
			oops.With("identity", identity).Wrap(err))
		profile = nil
	}

	s.audit.Record(ctx, withKind(event, EventLogin, true, ""))
	s.logger.InfoContext(ctx, "login succeeded", "identity", identity, "session_id", session.ID.String())

	return &AuthResult{
		Identity:  identity,
		Profile:   profile,
		Token:     token,
		ExpiresAt: session.ExpiresAt,
	}, nil
}

// handleMismatch advances the lockout counter after a wrong credential.
func (s *Service) handleMismatch(ctx context.Context, event AuditEvent, now time.Time) error {
	state, outcome, err := s.lockout.RecordFailure(ctx, event.Identity)
	if err != nil {
		return s.loginFailed(ctx, event, "record failure", err)
	}

	switch outcome {
	case Locked:
		s.metrics.RecordLockout()
		s.audit.Record(ctx, withKind(event, EventAccountLocked, false, "failure threshold reached"))
		s.logger.WarnContext(ctx, "account locked",
			"identity", event.Identity,
			"failed_attempts", state.FailedAttempts,
			"locked_until", *state.LockedUntil,
		)
		return accountLocked(*state.LockedUntil, now)
	case AlreadyLocked:
		s.audit.Record(ctx, withKind(event, EventLoginError, false, "account locked"))
		return accountLocked(*state.LockedUntil, now)
	default:
		s.audit.Record(ctx, withKind(event, EventLoginFailed, false, ""))
		return invalidCredentials()
	}
}

// ValidateSession returns the session for token if it is usable.
func (s *Service) ValidateSession(ctx context.Context, token, originAddress string) (session *Session, err error) {
	ctx, span := tracer.Start(ctx, "auth.ValidateSession")
	defer func() { s.finish(span, "validate_session", err) }()

	session, err = s.sessions.Validate(ctx, token, originAddress)
	if err != nil {
		if KindOf(err) == KindStorageFailure {
			errutil.LogError(s.logger, "session validation failed", err)
		}
		return nil, err
	}
	return session, nil
}

// InvalidateSession ends the session for token. Unknown or already
// invalidated tokens are not an error.
func (s *Service) InvalidateSession(ctx context.Context, token, originAddress string) (err error) {
	defer func() { s.metrics.RecordOutcome("invalidate_session", outcomeOf(err)) }()

	identity, err := s.sessions.Invalidate(ctx, token)
	if err != nil {
		errutil.LogError(s.logger, "session invalidation failed", err)
		return err
	}
	if identity != "" {
		s.audit.Record(ctx, AuditEvent{
			OriginAddress: originAddress,
			Kind:          EventLogout,
			Identity:      identity,
			Success:       true,
		})
	}
	return nil
}

// Profile returns the profile of identity.
func (s *Service) Profile(ctx context.Context, identity string) (*Profile, error) {
	profile, err := s.accounts.GetProfile(ctx, NormalizeIdentity(identity))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.With("identity", identity).Wrap(err)
		}
		errutil.LogError(s.logger, "profile lookup failed", err)
		return nil, storageFailure("get profile", err)
	}
	return profile, nil
}

// Sessions returns the stored sessions of identity.
func (s *Service) Sessions(ctx context.Context, identity string) ([]*Session, error) {
	return s.sessions.ListForIdentity(ctx, NormalizeIdentity(identity))
}

// PurgeSessions deletes expired and invalidated sessions.
func (s *Service) PurgeSessions(ctx context.Context) (int64, error) {
	n, err := s.sessions.Purge(ctx)
	if err != nil {
		errutil.LogError(s.logger, "session purge failed", err)
		return 0, err
	}
	s.logger.InfoContext(ctx, "sessions purged", "count", n)
	return n, nil
}

// AuditEvents lists recorded audit events.
func (s *Service) AuditEvents(ctx context.Context, filter AuditFilter) ([]AuditEvent, error) {
	if filter.Identity != "" {
		filter.Identity = NormalizeIdentity(filter.Identity)
	}
	events, err := s.audit.List(ctx, filter)
	if err != nil {
		return nil, storageFailure("list audit events", err)
	}
	return events, nil
}

// gate consults the rate limiter. A limiter that cannot answer lets the
// request through.
func (s *Service) gate(ctx context.Context, originAddress string, action Action) error {
	allowed, err := s.limiter.Allow(ctx, originAddress, action)
	if err != nil {
		errutil.LogWarn(s.logger, "rate limiter unavailable, allowing request",
			oops.With("action", string(action)).With("origin_address", originAddress).Wrap(err))
		return nil
	}
	if !allowed {
		s.logger.WarnContext(ctx, "rate limited", "action", string(action), "origin_address", originAddress)
		return rateLimited(action)
	}
	return nil
}

func (s *Service) registerFailed(ctx context.Context, req RegisterRequest, identity, operation string, err error) error {
	failure := storageFailure(operation, err)
	errutil.LogError(s.logger, "registration failed", failure)
	s.audit.Record(ctx, AuditEvent{
		OriginAddress: req.OriginAddress,
		Kind:          EventRegister,
		Identity:      identity,
		UserAgent:     req.UserAgent,
		ErrorDetail:   err.Error(),
	})
	return failure
}

func (s *Service) loginFailed(ctx context.Context, event AuditEvent, operation string, err error) error {
	failure := storageFailure(operation, err)
	errutil.LogError(s.logger, "login failed", failure)
	s.audit.Record(ctx, withKind(event, EventLoginError, false, err.Error()))
	return failure
}

func (s *Service) finish(span trace.Span, operation string, err error) {
	outcome := outcomeOf(err)
	span.SetAttributes(attribute.String("auth.outcome", outcome))
	if KindOf(err) == KindStorageFailure {
		span.RecordError(err)
		span.SetStatus(codes.Error, msgServerError)
	}
	span.End()
	s.metrics.RecordOutcome(operation, outcome)
}

func withKind(event AuditEvent, kind EventKind, success bool, detail string) AuditEvent {
	event.Kind = kind
	event.Success = success
	event.ErrorDetail = detail
	return event
}

func outcomeOf(err error) string {
	if err == nil {
		return "success"
	}
	return string(KindOf(err))
}
