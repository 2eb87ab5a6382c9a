// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (Business layer) → validates, authorizes, orchestrates
//	Repository (Data layer)  → reads/writes records
//
// The services here:
//
//	IdentityService → email → stable User (create on first sight), session tokens
//	CanView/CanManage → the whole access policy, as two pure predicates
//	AlbumService    → album lifecycle, sharing, cascade delete
//	ImageService    → image listing and metadata edits through the parent album
//	Ingestor        → upload pipeline: validate → store blob → record metadata
//
// Every method that acts on an album or image takes the caller's verified
// model.Identity and runs the access check before touching anything. Services
// depend on repository interfaces, never on a concrete store, so tests run
// them against in-memory fakes.
package service

import (
	"net/mail"
	"strings"

	"github.com/prateek1361/kaviosApp-backend/internal/apperror"
)

// NormalizeEmail trims and lower-cases an address and checks that it is a
// bare addr-spec ("ann@example.com", not "Ann <ann@example.com>").
//
// All email comparisons in the system (identity lookup, share lists, the
// view check) operate on normalized addresses.
func NormalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", apperror.ValidationFailed("email", "email is required")
	}

	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", apperror.ValidationFailed("email", "invalid email address: "+raw)
	}

	return email, nil
}
