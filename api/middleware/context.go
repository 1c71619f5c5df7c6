package middleware

import (
	"context"

	pkgAuth "github.com/angelmondragon/library-backend/pkg/auth"
)

type contextKey string

const ctxPrincipal contextKey = "principal"

// PrincipalFromContext returns the authenticated caller, if any.
func PrincipalFromContext(ctx context.Context) (pkgAuth.Principal, bool) {
	if ctx == nil {
		return pkgAuth.Principal{}, false
	}
	p, ok := ctx.Value(ctxPrincipal).(pkgAuth.Principal)
	return p, ok
}

// UserIDFromContext returns the caller's user id as a string, or "".
func UserIDFromContext(ctx context.Context) string {
	if p, ok := PrincipalFromContext(ctx); ok {
		return p.UserID.String()
	}
	return ""
}

// RoleFromContext returns the caller's role, or "".
func RoleFromContext(ctx context.Context) string {
	if p, ok := PrincipalFromContext(ctx); ok {
		return string(p.Role)
	}
	return ""
}

// WithPrincipal injects the authenticated caller into the context.
func WithPrincipal(ctx context.Context, p pkgAuth.Principal) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxPrincipal, p)
}
