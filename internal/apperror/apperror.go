// Package apperror defines the domain error taxonomy shared by every layer.
//
// Each failure kind is a sentinel error. Constructors return an *AppError that
// wraps the sentinel, so callers classify with errors.Is and read the
// human-readable message through errors.As:
//
//	if errors.Is(err, apperror.ErrForbidden) { ... }
//
// The HTTP layer is the only place that turns these into status codes.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("access denied")
	ErrNotFound        = errors.New("not found")
	ErrValidation      = errors.New("validation failed")
	ErrConflict        = errors.New("conflict")
	// ErrUnavailable marks a database or blob store failure. Callers may retry.
	ErrUnavailable = errors.New("dependency unavailable")
	// ErrInconsistent marks a blob that was stored but never recorded.
	ErrInconsistent = errors.New("inconsistent")
)

// Rejection reasons reported by the image ingestion pipeline.
const (
	ReasonWrongType     = "wrong_type"
	ReasonTooLarge      = "too_large"
	ReasonMissingFile   = "missing_file"
	ReasonAlbumNotFound = "album_not_found"
	ReasonAccessDenied  = "access_denied"
)

type AppError struct {
	Err     error  // sentinel this error belongs to
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
	Reason  string // Optional: machine-readable rejection reason
	Cause   error  // Optional: underlying driver/client error, never shown to clients
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap exposes both the sentinel and the underlying cause to errors.Is/As.
func (e *AppError) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Err, e.Cause}
	}
	return []error{e.Err}
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// Rejected is a validation failure carrying a rejection reason, used when an
// upload is turned away before anything is stored.
func Rejected(reason, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Reason:  reason,
	}
}

func Conflict(resource, id string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict with id %s", resource, id),
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

func Unauthenticated(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthenticated,
		Message: message,
	}
}

// Unavailable wraps a failure of an external dependency such as the database
// or the blob store.
func Unavailable(dependency string, cause error) *AppError {
	return &AppError{
		Err:     ErrUnavailable,
		Message: fmt.Sprintf("%s unavailable", dependency),
		Cause:   cause,
	}
}

// Inconsistent reports that external state changed but the matching record
// could not be written.
func Inconsistent(message string, cause error) *AppError {
	return &AppError{
		Err:     ErrInconsistent,
		Message: message,
		Cause:   cause,
	}
}

// WithReason attaches a rejection reason to e and returns it.
func (e *AppError) WithReason(reason string) *AppError {
	e.Reason = reason
	return e
}

// KindOf returns the sentinel of the outermost AppError in err's chain, or
// nil if there is none.
//
// errors.Is also matches sentinels inside Cause, so an Inconsistent error
// caused by a database outage is both ErrInconsistent and ErrUnavailable.
// KindOf gives the one kind the error was raised as.
func KindOf(err error) error {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Err
	}
	return nil
}

// ReasonOf returns the rejection reason carried by err, or "" if none.
func ReasonOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Reason
	}
	return ""
}
