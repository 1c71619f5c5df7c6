package controllers

import (
	"net/http"

	"github.com/angelmondragon/library-backend/api/middleware"
	"github.com/angelmondragon/library-backend/api/responses"
	pkgAuth "github.com/angelmondragon/library-backend/pkg/auth"
	pkgerrors "github.com/angelmondragon/library-backend/pkg/errors"
	"github.com/angelmondragon/library-backend/pkg/logger"
)

func unavailable(name string) error {
	return pkgerrors.New(pkgerrors.CodeInternal, name+" service unavailable")
}

// principal returns the authenticated caller or writes a 401.
func principal(w http.ResponseWriter, r *http.Request, logg *logger.Logger) (pkgAuth.Principal, bool) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "User not authenticated"))
		return pkgAuth.Principal{}, false
	}
	return p, true
}
