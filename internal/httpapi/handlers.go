// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/samber/oops"

	"github.com/holomush/campusauth/internal/auth"
	"github.com/holomush/campusauth/pkg/errutil"
)

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Nickname string `json:"nickname"`
	FullName string `json:"full_name"`
	GroupID  string `json:"group_id"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Identity  string    `json:"identity"`
	SessionID string    `json:"session_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, auth.CodeValidation, "invalid request body")
		return
	}

	identity, err := h.service.Register(r.Context(), auth.RegisterRequest{
		Identity:      req.Email,
		Credential:    req.Password,
		Nickname:      req.Nickname,
		FullName:      req.FullName,
		GroupID:       req.GroupID,
		OriginAddress: h.origins.resolve(r),
		UserAgent:     r.UserAgent(),
	})
	if err != nil {
		h.writeServiceError(w, r, "register", err)
		return
	}
	writeSuccess(w, http.StatusCreated, map[string]string{"identity": identity})
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, auth.CodeValidation, "invalid request body")
		return
	}

	result, err := h.service.Authenticate(r.Context(), auth.AuthenticateRequest{
		Identity:      req.Email,
		Credential:    req.Password,
		OriginAddress: h.origins.resolve(r),
		UserAgent:     r.UserAgent(),
	})
	if err != nil {
		h.writeServiceError(w, r, "login", err)
		return
	}
	writeSuccess(w, http.StatusOK, result)
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	token, ok := bearerToken(r.Header.Get("Authorization"))
	if !ok {
		writeError(w, http.StatusUnauthorized, auth.CodeSessionInvalid, "missing bearer token")
		return
	}
	if err := h.service.InvalidateSession(r.Context(), token, h.origins.resolve(r)); err != nil {
		h.writeServiceError(w, r, "logout", err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]string{"message": "logged out"})
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) {
	session, _ := sessionFromContext(r.Context())
	writeSuccess(w, http.StatusOK, sessionResponse{
		Identity:  session.Identity,
		SessionID: session.ID.String(),
		ExpiresAt: session.ExpiresAt,
	})
}

func (h *Handler) profile(w http.ResponseWriter, r *http.Request) {
	session, _ := sessionFromContext(r.Context())
	profile, err := h.service.Profile(r.Context(), session.Identity)
	if err != nil {
		h.writeServiceError(w, r, "profile", err)
		return
	}
	writeSuccess(w, http.StatusOK, profile)
}

func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, operation string, err error) {
	status, code, message := mapError(err)
	if status >= http.StatusInternalServerError {
		errutil.LogError(h.logger, "request failed",
			oops.With("operation", operation).With("request_id", requestIDFromContext(r.Context())).Wrap(err))
	}
	if value, ok := retryAfter(err); ok {
		w.Header().Set("Retry-After", value)
	}
	writeError(w, status, code, message)
}

// decodeBody reads one JSON object, rejecting unknown fields and
// trailing data.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err //nolint:wrapcheck // mapped to a fixed client message
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("unexpected data after JSON object")
	}
	return nil
}
