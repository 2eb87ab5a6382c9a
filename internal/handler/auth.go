package handler

import (
	"log/slog"
	"net/http"

	"github.com/rs/xid"

	"github.com/prateek1361/kaviosApp-backend/internal/apperror"
	"github.com/prateek1361/kaviosApp-backend/internal/auth"
	"github.com/prateek1361/kaviosApp-backend/internal/model"
	"github.com/prateek1361/kaviosApp-backend/internal/service"
)

const stateCookie = "oauth_state"

// AuthHandler manages login and the caller's own profile.
//
// HANDLER RESPONSIBILITIES:
//   - HandleLogin          → resolve an email to a user and issue a token
//   - HandleGoogleLogin    → redirect the browser to Google's consent page
//   - HandleGoogleCallback → exchange the code for a verified email, issue a token
//   - HandleMe             → return the currently authenticated user
//
// google is nil when Google login is not configured; the server then never
// routes to the Google handlers.
type AuthHandler struct {
	identity *service.IdentityService
	google   *auth.GoogleProvider
	logger   *slog.Logger
}

func NewAuthHandler(identity *service.IdentityService, google *auth.GoogleProvider, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		identity: identity,
		google:   google,
		logger:   logger,
	}
}

type loginRequest struct {
	Email string `json:"email"`
}

// HandleLogin resolves the email to a user, creating it on first sight, and
// returns a session token.
//
// HTTP: POST /login
// REQUEST BODY: {"email": "ann@example.com"}
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.identity.Login(r.Context(), req.Email)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// HandleGoogleLogin redirects the user to Google's authorization page.
//
// HTTP: GET /auth/google/login
//
// CSRF PROTECTION VIA STATE:
// A random state string goes into a short-lived HttpOnly cookie and into the
// authorization URL. HandleGoogleCallback only accepts a callback whose
// state matches the cookie.
func (h *AuthHandler) HandleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	state := xid.New().String()

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600, // 10 minutes
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.google.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGoogleCallback completes the OAuth login flow.
//
// HTTP: GET /auth/google/callback?code=xxx&state=yyy
//
// FLOW:
//  1. Validate the state parameter (CSRF check)
//  2. Exchange the code for the Google profile (verified email only)
//  3. Resolve the email to a user and issue a token
func (h *AuthHandler) HandleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	// --- Step 1: Validate CSRF state ---
	cookie, err := r.Cookie(stateCookie)
	if err != nil || cookie.Value == "" || r.URL.Query().Get("state") != cookie.Value {
		h.logger.Warn("auth callback: invalid state")
		writeError(w, apperror.Unauthenticated("invalid OAuth state"))
		return
	}

	// Single use.
	http.SetCookie(w, &http.Cookie{
		Name:   stateCookie,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("auth callback: user denied authorization", slog.String("error", errParam))
		writeError(w, apperror.Unauthenticated("Google authorization was denied"))
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		writeError(w, apperror.ValidationFailed("code", "missing OAuth code"))
		return
	}

	// --- Step 2: Exchange code for the Google profile ---
	gu, err := h.google.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Warn("auth callback: Google exchange failed", slog.String("error", err.Error()))
		writeError(w, apperror.Unauthenticated("Google authentication failed"))
		return
	}

	// --- Step 3: Resolve user and issue token ---
	result, err := h.identity.LoginGoogle(r.Context(), gu)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// HandleMe returns the currently authenticated user's record.
//
// HTTP: GET /api/me
// Auth: Required
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOrReject(w, r)
	if !ok {
		return
	}

	user, err := h.identity.Me(r.Context(), caller)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// callerOrReject returns the identity RequireAuth stored on the request.
// On an unprotected route it writes 401 and returns false.
func callerOrReject(w http.ResponseWriter, r *http.Request) (model.Identity, bool) {
	caller, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthenticated("valid authentication required"))
		return model.Identity{}, false
	}
	return caller, true
}
