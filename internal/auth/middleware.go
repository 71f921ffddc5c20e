package auth

import (
	"errors"
	"net/http"
	"strings"
)

// Middleware validates JWTs and enforces the role policy.
type Middleware struct {
	Secret []byte
	Policy Policy
}

// NewMiddleware constructs an auth middleware.
func NewMiddleware(secret []byte, policy Policy) *Middleware {
	return &Middleware{Secret: secret, Policy: policy}
}

// Wrap applies authentication and role checks to next.
func (m *Middleware) Wrap(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.Policy.IsExempt(r) {
			next.ServeHTTP(w, r)
			return
		}
		allowed, ok := m.Policy.AllowedRoles(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}
		claims, err := ParseJWT(extractBearer(r), m.Secret)
		if err != nil {
			status := http.StatusUnauthorized
			if !errors.Is(err, ErrUnauthorized) && !errors.Is(err, ErrInvalidToken) {
				status = http.StatusInternalServerError
			}
			http.Error(w, http.StatusText(status), status)
			return
		}
		role, _ := NormalizeRole(claims.Role)
		if !Allows(role, allowed) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), role, claims.Subject)))
	})
}

func extractBearer(r *http.Request) string {
	header := r.Header.Get("Authorization")
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}
