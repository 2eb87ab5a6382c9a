package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// echoIdentity writes the caller's email so tests can see what RequireAuth
// put in the context.
func echoIdentity(w http.ResponseWriter, r *http.Request) {
	id, ok := IdentityFromContext(r.Context())
	if !ok {
		http.Error(w, "no identity", http.StatusInternalServerError)
		return
	}
	w.Write([]byte(id.Email))
}

func TestRequireAuth(t *testing.T) {
	ts := newTestTokenService(t)
	valid, _ := ts.Generate(testIdentity)
	expired, _ := ts.GenerateWithDuration(testIdentity, -time.Minute)

	h := RequireAuth(ts)(http.HandlerFunc(echoIdentity))

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{"valid bearer", "Bearer " + valid, http.StatusOK},
		{"lower-case scheme", "bearer " + valid, http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + valid, http.StatusUnauthorized},
		{"expired", "Bearer " + expired, http.StatusUnauthorized},
		{"garbage", "Bearer nope", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/albums", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()

			h.ServeHTTP(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, testIdentity.Email, rr.Body.String())
			} else {
				assert.Contains(t, rr.Body.String(), `"error":"unauthenticated"`)
			}
		})
	}
}

func TestIdentityFromContext_Missing(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, ok := IdentityFromContext(req.Context())
	assert.False(t, ok)
}
