// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package httpapi exposes the auth service as a JSON HTTP API.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/holomush/campusauth/internal/auth"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 64 << 10

// AuthService is the part of auth.Service the API calls.
type AuthService interface {
	Register(ctx context.Context, req auth.RegisterRequest) (string, error)
	Authenticate(ctx context.Context, req auth.AuthenticateRequest) (*auth.AuthResult, error)
	ValidateSession(ctx context.Context, token, originAddress string) (*auth.Session, error)
	InvalidateSession(ctx context.Context, token, originAddress string) error
	Profile(ctx context.Context, identity string) (*auth.Profile, error)
}

// RequestRecorder counts finished requests.
type RequestRecorder interface {
	RecordHTTPRequest(route, status string)
}

// Options configures the router.
type Options struct {
	// TrustedProxies are glob patterns of peer IPs allowed to set
	// X-Forwarded-For.
	TrustedProxies []string
	Logger         *slog.Logger
	Metrics        RequestRecorder
}

// Handler serves the auth API.
type Handler struct {
	service AuthService
	origins *originResolver
	logger  *slog.Logger
	metrics RequestRecorder
}

// NewRouter builds the API routes and middleware stack.
func NewRouter(service AuthService, opts Options) (http.Handler, error) {
	origins, err := newOriginResolver(opts.TrustedProxies)
	if err != nil {
		return nil, err
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	h := &Handler{
		service: service,
		origins: origins,
		logger:  opts.Logger,
		metrics: opts.Metrics,
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(h.recoverMiddleware)
	r.Use(h.loggingMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/register", h.register)
		r.Post("/login", h.login)
		r.Post("/logout", h.logout)

		r.Group(func(r chi.Router) {
			r.Use(h.sessionMiddleware)
			r.Get("/session", h.session)
			r.Get("/profile", h.profile)
		})
	})
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "resource not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
	})

	return r, nil
}
