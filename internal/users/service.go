package users

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	pkgAuth "github.com/angelmondragon/library-backend/pkg/auth"
	"github.com/angelmondragon/library-backend/pkg/config"
	"github.com/angelmondragon/library-backend/pkg/db"
	"github.com/angelmondragon/library-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/library-backend/pkg/errors"
	"github.com/angelmondragon/library-backend/pkg/pagination"
	"github.com/angelmondragon/library-backend/pkg/security"
)

// Service exposes account management for the users endpoints.
type Service interface {
	List(ctx context.Context, params pagination.Params) (*ListResult, error)
	Get(ctx context.Context, id uuid.UUID) (*UserDTO, error)
	Update(ctx context.Context, actor pkgAuth.Principal, id uuid.UUID, input UpdateInput) (*UserDTO, error)
	Delete(ctx context.Context, actor pkgAuth.Principal, id uuid.UUID) error
}

// ListResult is one page of users.
type ListResult struct {
	Users []UserDTO
	Meta  pagination.Meta
}

// UpdateInput carries optional changes. Role and IsActive are admin-only.
type UpdateInput struct {
	Name     *string
	Email    *string
	Password *string
	Role     *enums.UserRole
	IsActive *bool
}

type service struct {
	repo      *Repository
	passwords config.PasswordConfig
}

// NewService wires the user service.
func NewService(repo *Repository, passwords config.PasswordConfig) (Service, error) {
	if repo == nil {
		return nil, errors.New("user repository required")
	}
	return &service{repo: repo, passwords: passwords}, nil
}

func (s *service) List(ctx context.Context, params pagination.Params) (*ListResult, error) {
	params = params.Normalize()
	list, total, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list users")
	}
	return &ListResult{Users: FromModels(list), Meta: pagination.NewMeta(params, total)}, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*UserDTO, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLookupError(err)
	}
	return FromModel(user), nil
}

func (s *service) Update(ctx context.Context, actor pkgAuth.Principal, id uuid.UUID, input UpdateInput) (*UserDTO, error) {
	if actor.UserID != id && !actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "Not authorized to update this user")
	}
	if (input.Role != nil || input.IsActive != nil) && !actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "Only admins can change role or status")
	}

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLookupError(err)
	}

	fields := map[string]any{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "Name cannot be empty")
		}
		fields["name"] = name
	}
	if input.Email != nil {
		email := NormalizeEmail(*input.Email)
		if email != user.Email {
			existing, err := s.repo.FindByEmail(ctx, email)
			if err != nil && !db.IsNotFound(err) {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup email")
			}
			if existing != nil {
				return nil, pkgerrors.New(pkgerrors.CodeConflict, "Email already registered")
			}
			fields["email"] = email
		}
	}
	if input.Password != nil {
		hash, err := security.HashPassword(*input.Password, s.passwords)
		if err != nil {
			if errors.Is(err, security.ErrPasswordTooShort) {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, err.Error())
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
		}
		fields["password_hash"] = hash
	}
	if input.Role != nil {
		if !input.Role.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "Invalid role")
		}
		fields["role"] = *input.Role
	}
	if input.IsActive != nil {
		fields["is_active"] = *input.IsActive
	}

	if len(fields) > 0 {
		if err := s.repo.Update(ctx, id, fields); err != nil {
			if db.IsUniqueViolation(err, "") {
				return nil, pkgerrors.New(pkgerrors.CodeConflict, "Email already registered")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update user")
		}
	}

	return s.Get(ctx, id)
}

func (s *service) Delete(ctx context.Context, actor pkgAuth.Principal, id uuid.UUID) error {
	if !actor.IsAdmin() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "Only admins can delete users")
	}
	if actor.UserID == id {
		return pkgerrors.New(pkgerrors.CodeValidation, "You cannot delete your own account")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return mapLookupError(err)
	}
	return nil
}

func mapLookupError(err error) error {
	if db.IsNotFound(err) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "User not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
}
