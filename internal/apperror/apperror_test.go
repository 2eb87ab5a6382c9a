package apperror

import (
	"errors"
	"fmt"
	"testing"
)

// TABLE-DRIVEN TESTS:
// Each case checks that errors.Is() identifies the sentinel through the
// AppError wrapper, including when the AppError is itself wrapped with %w.

func TestErrorsIs(t *testing.T) {
	dbErr := errors.New("connection refused")

	tests := []struct {
		name      string
		err       error
		target    error
		wantMatch bool
	}{
		{
			name:      "NotFound wraps ErrNotFound",
			err:       NotFound("album", "abc123"),
			target:    ErrNotFound,
			wantMatch: true,
		},
		{
			name:      "ValidationFailed wraps ErrValidation",
			err:       ValidationFailed("name", "name is required"),
			target:    ErrValidation,
			wantMatch: true,
		},
		{
			name:      "Rejected wraps ErrValidation",
			err:       Rejected(ReasonTooLarge, "file too large"),
			target:    ErrValidation,
			wantMatch: true,
		},
		{
			name:      "Forbidden wraps ErrForbidden",
			err:       Forbidden("access denied"),
			target:    ErrForbidden,
			wantMatch: true,
		},
		{
			name:      "Unauthenticated wraps ErrUnauthenticated",
			err:       Unauthenticated("no token"),
			target:    ErrUnauthenticated,
			wantMatch: true,
		},
		{
			name:      "Unavailable wraps ErrUnavailable",
			err:       Unavailable("database", dbErr),
			target:    ErrUnavailable,
			wantMatch: true,
		},
		{
			name:      "Unavailable also exposes the cause",
			err:       Unavailable("database", dbErr),
			target:    dbErr,
			wantMatch: true,
		},
		{
			name:      "Inconsistent wraps ErrInconsistent",
			err:       Inconsistent("image stored but not recorded", dbErr),
			target:    ErrInconsistent,
			wantMatch: true,
		},
		{
			name:      "wrapped with fmt.Errorf still matches",
			err:       fmt.Errorf("deleting album: %w", NotFound("album", "x")),
			target:    ErrNotFound,
			wantMatch: true,
		},
		{
			name:      "NotFound does NOT match ErrForbidden",
			err:       NotFound("album", "abc123"),
			target:    ErrForbidden,
			wantMatch: false,
		},
		{
			name:      "Forbidden does NOT match ErrNotFound",
			err:       Forbidden("nope"),
			target:    ErrNotFound,
			wantMatch: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := errors.Is(tt.err, tt.target)
			if got != tt.wantMatch {
				t.Errorf("errors.Is(%v, %v) = %v, want %v", tt.err, tt.target, got, tt.wantMatch)
			}
		})
	}
}

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name        string
		err         *AppError
		wantMessage string
	}{
		{
			name:        "NotFound message includes resource and id",
			err:         NotFound("image", "abc123"),
			wantMessage: "image not found with id abc123",
		},
		{
			name:        "ValidationFailed uses custom message",
			err:         ValidationFailed("name", "name is required"),
			wantMessage: "name is required",
		},
		{
			name:        "Conflict message includes resource and id",
			err:         Conflict("user", "a@example.com"),
			wantMessage: "user conflict with id a@example.com",
		},
		{
			name:        "Unavailable includes dependency and cause",
			err:         Unavailable("blob store", errors.New("timeout")),
			wantMessage: "blob store unavailable: timeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMessage {
				t.Errorf("Error() = %q, want %q", got, tt.wantMessage)
			}
		})
	}
}

func TestReasonOf(t *testing.T) {
	err := fmt.Errorf("upload: %w", Rejected(ReasonWrongType, "only image files allowed"))
	if got := ReasonOf(err); got != ReasonWrongType {
		t.Errorf("ReasonOf() = %q, want %q", got, ReasonWrongType)
	}
	if got := ReasonOf(errors.New("plain")); got != "" {
		t.Errorf("ReasonOf(plain) = %q, want empty", got)
	}
}

func TestValidationFailedField(t *testing.T) {
	err := ValidationFailed("emails", "invalid email address")

	if err.Field != "emails" {
		t.Errorf("Field = %q, want %q", err.Field, "emails")
	}
}

func TestWithReason_KeepsKind(t *testing.T) {
	err := NotFound("album", "a1").WithReason(ReasonAlbumNotFound)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("errors.Is(ErrNotFound) = false for %v", err)
	}
	if got := ReasonOf(err); got != ReasonAlbumNotFound {
		t.Errorf("ReasonOf() = %q, want %q", got, ReasonAlbumNotFound)
	}
}

func TestKindOf(t *testing.T) {
	dbDown := Unavailable("database", errors.New("sql: database is closed"))

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"plain", errors.New("boom"), nil},
		{"not found", NotFound("album", "a1"), ErrNotFound},
		{"wrapped", fmt.Errorf("loading album: %w", dbDown), ErrUnavailable},
		{"inconsistent over outage", Inconsistent("image stored but not recorded", fmt.Errorf("creating image: %w", dbDown)), ErrInconsistent},
		{"inconsistent over not found", fmt.Errorf("upload: %w", Inconsistent("image stored but not recorded", NotFound("album", "a1"))), ErrInconsistent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %v, want %v", got, tt.want)
			}
		})
	}
}
