package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const googleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"

// GoogleUser is the portion of Google's OpenID userinfo response we use.
type GoogleUser struct {
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
}

// ErrEmailNotVerified is returned when Google reports an unverified address.
// Album access is keyed by email, so an unverified one is never accepted.
var ErrEmailNotVerified = errors.New("auth: Google account email is not verified")

// GoogleProvider wraps golang.org/x/oauth2 for the Google Authorization Code
// flow:
//  1. redirect the user to Google with our ClientID and scopes
//  2. Google redirects back to CallbackURL with a short-lived code
//  3. exchange the code for an access token (server-to-server, with the
//     ClientSecret)
//  4. call the userinfo endpoint for the verified email
type GoogleProvider struct {
	config      *oauth2.Config
	userInfoURL string
}

// NewGoogleProvider creates a GoogleProvider with the given credentials.
// callbackURL must match an authorized redirect URI of the OAuth client,
// e.g. "http://localhost:8080/auth/google/callback".
func NewGoogleProvider(clientID, clientSecret, callbackURL string) *GoogleProvider {
	return NewGoogleProviderWithEndpoint(clientID, clientSecret, callbackURL, google.Endpoint, googleUserInfoURL)
}

// NewGoogleProviderWithEndpoint points the provider at custom token and
// userinfo endpoints. Tests use it with an httptest server.
func NewGoogleProviderWithEndpoint(clientID, clientSecret, callbackURL string, endpoint oauth2.Endpoint, userInfoURL string) *GoogleProvider {
	return &GoogleProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     endpoint,
		},
		userInfoURL: userInfoURL,
	}
}

// AuthURL returns the URL to redirect the user to for authorization.
// state is a random value the caller also stores in a cookie and compares on
// callback (CSRF protection).
func (p *GoogleProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange trades the authorization code for the caller's Google profile.
// The returned email is lower-cased and guaranteed verified.
func (p *GoogleProvider) Exchange(ctx context.Context, code string) (*GoogleUser, error) {
	oauthToken, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("auth: exchanging OAuth code: %w", err)
	}

	// Client adds "Authorization: Bearer <token>" to every request.
	client := p.config.Client(ctx, oauthToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("auth: building userinfo request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("auth: calling Google userinfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("auth: Google userinfo returned status %d", resp.StatusCode)
	}

	var user GoogleUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("auth: decoding Google userinfo: %w", err)
	}

	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	if user.Email == "" {
		return nil, errors.New("auth: Google returned no email")
	}
	if !user.EmailVerified {
		return nil, ErrEmailNotVerified
	}

	return &user, nil
}
