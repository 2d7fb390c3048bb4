package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/storedir/store-directory/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	testSecret = "test-signing-secret"
	testIssuer = "store-directory"
)

func newTestMiddleware() *Middleware {
	return NewMiddleware(&config.AuthConfig{
		Enabled:   true,
		APIKey:    "admin-key",
		JWTSecret: testSecret,
		JWTIssuer: testIssuer,
	}, zap.NewNop())
}

func protectedHandler(t *testing.T, want Method) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := FromContext(r.Context())
		require.True(t, ok)
		assert.Equal(t, want, p.Method)
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestAuthenticate_APIKey(t *testing.T) {
	m := newTestMiddleware()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/stores", nil)
	req.Header.Set("x-api-key", "admin-key")
	rec := httptest.NewRecorder()
	m.Authenticate(protectedHandler(t, MethodAPIKey)).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/stores", nil)
	req.Header.Set("x-api-key", "wrong")
	rec = httptest.NewRecorder()
	m.Authenticate(protectedHandler(t, MethodAPIKey)).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthenticate_JWT(t *testing.T) {
	m := newTestMiddleware()

	token, err := IssueToken(testSecret, testIssuer, "user-1", "Jamie", time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPut, "/api/v1/stores/1", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	m.Authenticate(protectedHandler(t, MethodJWT)).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestAuthenticate_Rejected(t *testing.T) {
	m := newTestMiddleware()
	expired, err := IssueToken(testSecret, testIssuer, "user-1", "", -time.Minute)
	require.NoError(t, err)
	otherIssuer, err := IssueToken(testSecret, "someone-else", "user-1", "", time.Hour)
	require.NoError(t, err)
	wrongSecret, err := IssueToken("other-secret", testIssuer, "user-1", "", time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"basic scheme", "Basic dXNlcjpwYXNz"},
		{"garbage token", "Bearer not.a.token"},
		{"expired", "Bearer " + expired},
		{"wrong issuer", "Bearer " + otherIssuer},
		{"wrong secret", "Bearer " + wrongSecret},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodDelete, "/api/v1/stores/1", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			m.Authenticate(protectedHandler(t, MethodJWT)).ServeHTTP(rec, req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestValidateToken(t *testing.T) {
	v := NewJWTValidator(testSecret, "")

	token, err := IssueToken(testSecret, "any", "svc-export", "", time.Hour)
	require.NoError(t, err)
	p, err := v.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "svc-export", p.Subject)
	assert.Equal(t, "svc-export", p.Name)

	expired, err := IssueToken(testSecret, "any", "svc-export", "", -time.Minute)
	require.NoError(t, err)
	_, err = v.ValidateToken(expired)
	assert.ErrorIs(t, err, ErrExpiredToken)

	_, err = NewJWTValidator("", "").ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAuthenticateBrowser(t *testing.T) {
	m := newTestMiddleware()

	t.Run("basic auth with api key as password", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/stores", nil)
		req.SetBasicAuth("jamie", "admin-key")
		rec := httptest.NewRecorder()
		m.AuthenticateBrowser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := FromContext(r.Context())
			require.True(t, ok)
			assert.Equal(t, "jamie", p.Subject)
			assert.Equal(t, MethodBasic, p.Method)
			w.WriteHeader(http.StatusNoContent)
		})).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("empty user name", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/stores", nil)
		req.SetBasicAuth("", "admin-key")
		rec := httptest.NewRecorder()
		m.AuthenticateBrowser(protectedHandler(t, MethodBasic)).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("wrong password prompts again", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/stores", nil)
		req.SetBasicAuth("jamie", "nope")
		rec := httptest.NewRecorder()
		m.AuthenticateBrowser(protectedHandler(t, MethodBasic)).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Header().Get("WWW-Authenticate"), `Basic realm="Store Directory"`)
	})

	t.Run("no credentials", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/stores/new", nil)
		rec := httptest.NewRecorder()
		m.AuthenticateBrowser(protectedHandler(t, MethodBasic)).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))
	})

	t.Run("api key header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/stores/1/delete", nil)
		req.Header.Set("x-api-key", "admin-key")
		rec := httptest.NewRecorder()
		m.AuthenticateBrowser(protectedHandler(t, MethodAPIKey)).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("bearer token", func(t *testing.T) {
		token, err := IssueToken(testSecret, testIssuer, "user-1", "Jamie", time.Hour)
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodPost, "/stores/1", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		m.AuthenticateBrowser(protectedHandler(t, MethodJWT)).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})
}
