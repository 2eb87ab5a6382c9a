package handler

// RESPONSE HELPERS:
// These functions standardise how we send JSON responses and errors.
//
// CONSISTENT ERROR FORMAT:
// Every error response from our API has the same shape:
//   {"error": "not_found", "message": "album not found with id abc123"}
//
// Upload rejections add a machine-readable reason, and validation failures
// name the offending field when there is one:
//   {"error": "validation_error", "message": "...", "reason": "wrong_type"}

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prateek1361/kaviosApp-backend/internal/apperror"
)

// maxJSONBody caps every JSON request body. Metadata requests are small.
const maxJSONBody = 1 << 20

// ErrorResponse is the standard error format returned by all API endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`            // Machine-readable error type (e.g., "not_found")
	Message string `json:"message"`          // Human-readable description
	Reason  string `json:"reason,omitempty"` // Upload rejection reason
	Field   string `json:"field,omitempty"`  // Field that failed validation
}

// MessageResponse confirms an operation that has nothing else to return.
type MessageResponse struct {
	Message string `json:"message"`
}

// writeJSON sends a JSON response with the given status code.
//
// HEADER ORDER MATTERS:
// Headers and status code must be set BEFORE the body is written. Once
// Encode writes, the headers are on the wire.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent; all we can do is log.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps a domain error to the appropriate HTTP status code and sends it.
//
// ERROR MAPPING:
//
//	ErrUnauthenticated → 401    ErrConflict     → 409
//	ErrForbidden       → 403    ErrUnavailable  → 503 (retryable)
//	ErrNotFound        → 404    ErrInconsistent → 502
//	ErrValidation      → 400, or 413 when the upload was too large
//
// The service layer never sees status codes; this is the only translation.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		// NEVER expose internal error details to the client.
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "An internal error occurred",
		})
		return
	}

	status, errorType := statusOf(err)
	if appErr.Reason == apperror.ReasonTooLarge {
		status = http.StatusRequestEntityTooLarge
	}
	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "1")
	}

	writeJSON(w, status, ErrorResponse{
		Error:   errorType,
		Message: appErr.Message,
		Reason:  appErr.Reason,
		Field:   appErr.Field,
	})
}

// statusOf classifies by the kind the error was raised as. The cause chain is
// not consulted: an image stored but not recorded because the database went
// away is 502, not 503.
func statusOf(err error) (int, string) {
	switch apperror.KindOf(err) {
	case apperror.ErrUnauthenticated:
		return http.StatusUnauthorized, "unauthenticated"
	case apperror.ErrForbidden:
		return http.StatusForbidden, "forbidden"
	case apperror.ErrNotFound:
		return http.StatusNotFound, "not_found"
	case apperror.ErrValidation:
		return http.StatusBadRequest, "validation_error"
	case apperror.ErrConflict:
		return http.StatusConflict, "conflict"
	case apperror.ErrUnavailable:
		return http.StatusServiceUnavailable, "unavailable"
	case apperror.ErrInconsistent:
		return http.StatusBadGateway, "inconsistent"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// decodeJSON reads a JSON body into dst. Unknown fields are rejected so a
// typo such as "isFavourite" fails loudly instead of being ignored.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return apperror.ValidationFailed("body", fmt.Sprintf("request body must be %d bytes or less", maxErr.Limit))
		}
		return apperror.ValidationFailed("body", "invalid JSON body: "+err.Error())
	}
	return nil
}
