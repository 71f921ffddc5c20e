package auth

import "context"

type contextKey string

const (
	contextKeyRole    contextKey = "auth.role"
	contextKeySubject contextKey = "auth.subject"
)

// WithIdentity stores the caller identity in ctx.
func WithIdentity(ctx context.Context, role Role, subject string) context.Context {
	ctx = context.WithValue(ctx, contextKeyRole, role)
	return context.WithValue(ctx, contextKeySubject, subject)
}

// RoleFromContext extracts the caller role.
func RoleFromContext(ctx context.Context) Role {
	if ctx == nil {
		return ""
	}
	role, _ := ctx.Value(contextKeyRole).(Role)
	return role
}

// SubjectFromContext extracts the caller user id.
func SubjectFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	subject, _ := ctx.Value(contextKeySubject).(string)
	return subject
}
