package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/prateek1361/kaviosApp-backend/internal/model"
)

// contextKey is an unexported type used for context keys in this package,
// so no other package can read or shadow the identity value.
type contextKey string

const identityKey contextKey = "identity"

// RequireAuth is a middleware that enforces authentication on protected routes.
//
// It reads the JWT from the "Authorization: Bearer <token>" header,
// validates it, and stores the caller's model.Identity in the request
// context. If the token is missing or invalid, it returns 401 Unauthorized
// and stops the request chain.
func RequireAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := extractIdentity(r, tokens)
			if err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("WWW-Authenticate", `Bearer realm="kaviospix"`)
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":"unauthenticated","message":"valid authentication required"}` + "\n"))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id model.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext retrieves the authenticated caller from the request
// context. It returns false outside RequireAuth.
//
// Usage in handlers:
//
//	id, ok := auth.IdentityFromContext(r.Context())
func IdentityFromContext(ctx context.Context) (model.Identity, bool) {
	id, ok := ctx.Value(identityKey).(model.Identity)
	return id, ok && id.UserID != ""
}

func extractIdentity(r *http.Request, tokens *TokenService) (model.Identity, error) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return model.Identity{}, errMissingBearer
	}

	return tokens.Validate(strings.TrimSpace(token))
}

var errMissingBearer = errors.New("auth: missing bearer token")
