// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package httpapi

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"

	"github.com/holomush/campusauth/internal/auth"
)

type apiError struct {
	Status  string `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload) //nolint:errcheck // client may disconnect
}

func writeSuccess(w http.ResponseWriter, statusCode int, data any) {
	writeJSON(w, statusCode, map[string]any{
		"status": "success",
		"data":   data,
	})
}

func writeError(w http.ResponseWriter, statusCode int, code, message string) {
	writeJSON(w, statusCode, apiError{
		Status:  "error",
		Code:    code,
		Message: message,
	})
}

// mapError picks the status, code and public message for a service error.
func mapError(err error) (int, string, string) {
	message := auth.PublicMessage(err)
	switch auth.KindOf(err) {
	case auth.KindValidation:
		return http.StatusBadRequest, auth.CodeValidation, message
	case auth.KindRateLimited:
		return http.StatusTooManyRequests, auth.CodeRateLimited, message
	case auth.KindInvalidCredentials:
		return http.StatusUnauthorized, auth.CodeInvalidCredentials, message
	case auth.KindAccountLocked:
		return http.StatusLocked, auth.CodeAccountLocked, message
	case auth.KindSessionExpiredOrUnknown:
		return http.StatusUnauthorized, auth.CodeSessionInvalid, message
	case auth.KindNotFound:
		return http.StatusNotFound, "NOT_FOUND", "resource not found"
	default:
		return http.StatusInternalServerError, auth.CodeStorageFailure, message
	}
}

// retryAfter renders a lock's remaining time in whole seconds, rounded up.
func retryAfter(err error) (string, bool) {
	remaining, ok := auth.LockRemaining(err)
	if !ok || remaining <= 0 {
		return "", false
	}
	return strconv.Itoa(int(math.Ceil(remaining.Seconds()))), true
}
