package controllers

import (
	"net/http"

	"github.com/angelmondragon/library-backend/api/responses"
	"github.com/angelmondragon/library-backend/api/validators"
	"github.com/angelmondragon/library-backend/internal/users"
	"github.com/angelmondragon/library-backend/pkg/enums"
	"github.com/angelmondragon/library-backend/pkg/logger"
)

type updateUserRequest struct {
	Name     *string         `json:"name,omitempty" validate:"omitempty,min=2,max=120"`
	Email    *string         `json:"email,omitempty" validate:"omitempty,email"`
	Password *string         `json:"password,omitempty" validate:"omitempty,min=6"`
	Role     *enums.UserRole `json:"role,omitempty" validate:"omitempty,oneof=admin librarian student"`
	IsActive *bool           `json:"isActive,omitempty"`
}

func ListUsers(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("user"))
			return
		}
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.List(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteList(w, result.Users, len(result.Users), &result.Meta)
	}
}

// UpdateUser lets callers edit themselves. Admins may edit anyone, including role and status.
func UpdateUser(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("user"))
			return
		}
		actor, ok := principal(w, r, logg)
		if !ok {
			return
		}
		id, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body updateUserRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		user, err := svc.Update(r.Context(), actor, id, users.UpdateInput{
			Name:     body.Name,
			Email:    body.Email,
			Password: body.Password,
			Role:     body.Role,
			IsActive: body.IsActive,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, "User updated successfully", user)
	}
}

func DeleteUser(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("user"))
			return
		}
		actor, ok := principal(w, r, logg)
		if !ok {
			return
		}
		id, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), actor, id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, "User deleted successfully", nil)
	}
}
