package handler

// RESPONSE HELPERS:
// Every error response has the same shape:
//   {"error": "Email already exists"}
//
// The client displays the message as-is, so it must never carry more than
// the service chose to expose.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/auth-backend/internal/apperror"
)

// ErrorResponse is the error body returned by all endpoints.
type ErrorResponse struct {
	Error string `json:"error"`
}

// writeJSON sends data as JSON with the given status code.
// Headers and status go out before the body.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent; all we can do is log.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps a service error to its HTTP status and sends it.
//
// ERROR MAPPING:
//
//	ErrValidation, ErrNotFound, ErrCredentialMismatch → 403
//	ErrConflict, ErrFederatedVerification, ErrInternal → 500
//
// Existing clients depend on these codes, including 500 for a duplicate
// email, so they are kept as they are.
func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), ErrorResponse{Error: messageFor(err)})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, apperror.ErrValidation),
		errors.Is(err, apperror.ErrNotFound),
		errors.Is(err, apperror.ErrCredentialMismatch):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func messageFor(err error) string {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}
