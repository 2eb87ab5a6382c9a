// Package auth verifies who is calling the API.
//
// AUTHENTICATION FLOW OVERVIEW:
//  1. A client logs in with POST /login {email}, or through Google at
//     /auth/google/login → Google → /auth/google/callback
//  2. The server resolves the email to a User and issues a signed JWT
//  3. The client sends it back as "Authorization: Bearer <jwt>"
//  4. RequireAuth validates the JWT and puts the caller's model.Identity
//     (userId + email) in the request context
//
// Everything behind RequireAuth works with a verified identity only; no
// handler ever parses a token.
//
// JWT STRUCTURE (three base64-encoded parts separated by dots):
//
//	HEADER.PAYLOAD.SIGNATURE
//	- Header: {"alg":"HS256","typ":"JWT"}
//	- Payload: {"sub":"<userId>","email":"<email>","iss":"kaviospix","exp":...}
//	- Signature: HMAC-SHA256(header+"."+payload, secretKey)
//
// The email travels in the token because album access is decided by
// matching it against share lists; the verifier needs no DB lookup.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/prateek1361/kaviosApp-backend/internal/model"
)

const issuer = "kaviospix"

// DefaultTTL is the session lifetime when none is configured.
const DefaultTTL = 24 * time.Hour

// TokenService handles JWT creation and validation.
//
// It holds the HMAC secret key used to sign and verify tokens.
// The same secret must be used for both operations.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService creates a TokenService with the given secret and token
// lifetime. A non-positive ttl selects DefaultTTL.
// Example: JWT_SECRET=$(openssl rand -hex 32)
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &TokenService{secret: []byte(secret), ttl: ttl}, nil
}

// claims is the JWT payload. "sub" holds the user ID; Email is a private
// claim.
type claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Generate creates and signs a session token for id.
//
// Signing algorithm: HS256 (HMAC-SHA256). Symmetric, so the same key signs
// and verifies.
func (s *TokenService) Generate(id model.Identity) (string, error) {
	return s.GenerateWithDuration(id, s.ttl)
}

// GenerateWithDuration creates a token with a custom expiry duration.
// Used in tests to mint already-expired tokens.
func (s *TokenService) GenerateWithDuration(id model.Identity, d time.Duration) (string, error) {
	if id.UserID == "" || id.Email == "" {
		return "", errors.New("auth: identity must have both user ID and email")
	}

	now := time.Now()

	c := claims{
		Email: id.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
			Issuer:    issuer,
		},
	}

	// jwt.NewWithClaims creates an unsigned token with the given algorithm.
	// SignedString(key) signs it and returns the complete JWT string.
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, nil
}

// Validate parses and verifies a JWT string and returns the identity it
// carries.
//
// VALIDATION CHECKS (performed by the jwt library):
//   - Signature is valid (wasn't tampered with)
//   - Token is not expired (ExpiresAt is in the future)
//   - Issuer matches "kaviospix"
//   - Algorithm is HS256 (prevents algorithm confusion attacks)
func (s *TokenService) Validate(tokenStr string) (model.Identity, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			// Reject tokens that aren't signed with HMAC
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return model.Identity{}, fmt.Errorf("auth: token expired")
		}
		return model.Identity{}, fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return model.Identity{}, fmt.Errorf("auth: invalid token claims")
	}

	if c.Subject == "" || c.Email == "" {
		return model.Identity{}, fmt.Errorf("auth: token has no subject or email")
	}

	return model.Identity{UserID: c.Subject, Email: c.Email}, nil
}
