package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret")

func newTestHandler() (http.Handler, *string) {
	var seen string
	mw := NewMiddleware(testSecret, NewDefaultPolicy([]string{"/healthz", "/metrics"}, nil))
	return mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = string(RoleFromContext(r.Context())) + ":" + SubjectFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})), &seen
}

func serve(handler http.Handler, method, path, token string) int {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	return resp.Code
}

func mustToken(t *testing.T, subject string, role Role) string {
	t.Helper()
	token, err := IssueJWT(testSecret, subject, role, time.Hour)
	require.NoError(t, err)
	return token
}

func TestMiddlewareRejectsMissingToken(t *testing.T) {
	handler, _ := newTestHandler()
	assert.Equal(t, http.StatusUnauthorized, serve(handler, http.MethodGet, "/api/v1/invoices", ""))
	assert.Equal(t, http.StatusOK, serve(handler, http.MethodGet, "/healthz", ""))
}

func TestMiddlewareRoleMatrix(t *testing.T) {
	owner := mustToken(t, "owner-1", RoleOwner)
	tenant := mustToken(t, "tenant-1", RoleTenant)
	admin := mustToken(t, "admin-1", RoleAdmin)

	cases := []struct {
		name   string
		method string
		path   string
		token  string
		want   int
	}{
		{"tenant lists invoices", http.MethodGet, "/api/v1/invoices", tenant, http.StatusOK},
		{"tenant cannot create", http.MethodPost, "/api/v1/invoices", tenant, http.StatusForbidden},
		{"tenant pays", http.MethodPost, "/api/v1/invoices/inv-1/payments", tenant, http.StatusOK},
		{"tenant cannot edit charges", http.MethodPatch, "/api/v1/invoices/inv-1", tenant, http.StatusForbidden},
		{"tenant cannot generate", http.MethodPost, "/api/v1/invoices/generate", tenant, http.StatusForbidden},
		{"owner generates", http.MethodPost, "/api/v1/invoices/generate", owner, http.StatusOK},
		{"owner vacates", http.MethodPost, "/api/v1/units/flat-1/vacate", owner, http.StatusOK},
		{"owner cannot run jobs", http.MethodPost, "/api/v1/jobs/calculate-late-fees/run", owner, http.StatusForbidden},
		{"admin runs jobs", http.MethodPost, "/api/v1/jobs/calculate-late-fees/run", admin, http.StatusOK},
		{"admin reads config", http.MethodGet, "/api/v1/billing-config", admin, http.StatusOK},
	}
	handler, _ := newTestHandler()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, serve(handler, tc.method, tc.path, tc.token))
		})
	}
}

func TestMiddlewareStoresIdentity(t *testing.T) {
	handler, seen := newTestHandler()
	require.Equal(t, http.StatusOK, serve(handler, http.MethodGet, "/api/v1/invoices", mustToken(t, "tenant-7", RoleTenant)))
	assert.Equal(t, "tenant:tenant-7", *seen)
}

func TestParseJWTRejectsBadTokens(t *testing.T) {
	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Role: "owner",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "owner-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	})
	signed, err := expired.SignedString(testSecret)
	require.NoError(t, err)
	_, err = ParseJWT(signed, testSecret)
	assert.ErrorIs(t, err, ErrInvalidToken)

	badRole := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Role: "viewer",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "owner-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err = badRole.SignedString(testSecret)
	require.NoError(t, err)
	_, err = ParseJWT(signed, testSecret)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = ParseJWT(mustToken(t, "owner-1", RoleOwner), []byte("other-secret"))
	assert.ErrorIs(t, err, ErrInvalidToken)
}
