package middleware

import (
	"fmt"
	"net/http"

	"github.com/angelmondragon/library-backend/api/responses"
	"github.com/angelmondragon/library-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/library-backend/pkg/errors"
	"github.com/angelmondragon/library-backend/pkg/logger"
)

// RequireRoles admits callers holding one of roles. Admins pass every gate.
func RequireRoles(logg *logger.Logger, roles ...enums.UserRole) func(http.Handler) http.Handler {
	allowed := make(map[enums.UserRole]struct{}, len(roles)+1)
	allowed[enums.UserRoleAdmin] = struct{}{}
	for _, role := range roles {
		allowed[role] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFromContext(r.Context())
			if !ok {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "User not authenticated"))
				return
			}
			if _, ok := allowed[p.Role]; !ok {
				msg := fmt.Sprintf("User role %s is not authorized to access this route", p.Role)
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, msg))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireStaff admits librarians and admins.
func RequireStaff(logg *logger.Logger) func(http.Handler) http.Handler {
	return RequireRoles(logg, enums.UserRoleLibrarian)
}

// RequireAdmin admits admins only.
func RequireAdmin(logg *logger.Logger) func(http.Handler) http.Handler {
	return RequireRoles(logg)
}
