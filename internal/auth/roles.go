package auth

// Role is a caller role carried in the token.
type Role string

const (
	RoleTenant Role = "tenant"
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
)

// NormalizeRole validates a role string.
func NormalizeRole(value string) (Role, bool) {
	switch Role(value) {
	case RoleTenant, RoleOwner, RoleAdmin:
		return Role(value), true
	default:
		return "", false
	}
}

// Allows reports whether role is in allowed. Admin is always allowed.
func Allows(role Role, allowed []Role) bool {
	if role == RoleAdmin {
		return true
	}
	for _, candidate := range allowed {
		if candidate == role {
			return true
		}
	}
	return false
}
