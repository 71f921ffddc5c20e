package auth

import (
	"net/http"
	"strings"
)

var (
	ownerOnly      = []Role{RoleOwner}
	ownerOrTenant  = []Role{RoleOwner, RoleTenant}
	adminOnly      = []Role{RoleAdmin}
	anyoneSignedIn = []Role{RoleOwner, RoleTenant}
)

// Policy determines which roles may call a route.
type Policy struct {
	ExemptPaths    map[string]struct{}
	ExemptPrefixes []string
}

// NewDefaultPolicy builds a policy with exemptions.
func NewDefaultPolicy(exemptPaths []string, exemptPrefixes []string) Policy {
	set := make(map[string]struct{}, len(exemptPaths))
	for _, path := range exemptPaths {
		set[path] = struct{}{}
	}
	return Policy{ExemptPaths: set, ExemptPrefixes: exemptPrefixes}
}

// IsExempt reports whether a request skips authentication.
func (p Policy) IsExempt(r *http.Request) bool {
	if r == nil {
		return true
	}
	if _, ok := p.ExemptPaths[r.URL.Path]; ok {
		return true
	}
	for _, prefix := range p.ExemptPrefixes {
		if strings.HasPrefix(r.URL.Path, prefix) {
			return true
		}
	}
	return false
}

// AllowedRoles resolves the roles permitted for the request. Resource-level
// checks (own invoice, own unit) happen in the services.
func (p Policy) AllowedRoles(r *http.Request) ([]Role, bool) {
	if r == nil {
		return nil, false
	}
	path := r.URL.Path
	method := r.Method

	switch {
	case path == "/api/v1/invoices/generate",
		path == "/api/v1/invoices/stats",
		path == "/api/v1/invoices/export.xlsx",
		path == "/api/v1/billing-config":
		return ownerOnly, true
	case path == "/api/v1/invoices":
		if method == http.MethodPost {
			return ownerOnly, true
		}
		return ownerOrTenant, true
	case strings.HasPrefix(path, "/api/v1/invoices/"):
		if method == http.MethodGet || strings.HasSuffix(path, "/payments") {
			return ownerOrTenant, true
		}
		return ownerOnly, true
	case strings.HasPrefix(path, "/api/v1/units/"):
		return ownerOnly, true
	case strings.HasPrefix(path, "/api/v1/jobs"):
		return adminOnly, true
	}
	if strings.HasPrefix(path, "/api/") {
		return anyoneSignedIn, true
	}
	return nil, false
}
