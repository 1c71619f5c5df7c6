package librarians

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"gorm.io/gorm"

	"github.com/angelmondragon/library-backend/internal/users"
	"github.com/angelmondragon/library-backend/pkg/db"
	"github.com/angelmondragon/library-backend/pkg/db/models"
	"github.com/angelmondragon/library-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/library-backend/pkg/errors"
	"github.com/angelmondragon/library-backend/pkg/pagination"
)

const defaultDepartment = "Library"

// Service manages librarian profiles.
type Service interface {
	Create(ctx context.Context, req CreateLibrarianRequest) (*LibrarianDTO, error)
	List(ctx context.Context, params pagination.Params) (*ListResult, error)
	Get(ctx context.Context, id uuid.UUID) (*LibrarianDTO, error)
	Update(ctx context.Context, id uuid.UUID, req UpdateLibrarianRequest) (*LibrarianDTO, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Stats(ctx context.Context, id uuid.UUID) (*StatsDTO, error)
}

// ListResult is one page of librarians.
type ListResult struct {
	Librarians []LibrarianDTO
	Meta       pagination.Meta
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	repo *Repository
	tx   txRunner
}

// NewService constructs the librarian service.
func NewService(repo *Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("librarian repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

// Create attaches the profile and promotes a student account to librarian.
func (s *service) Create(ctx context.Context, req CreateLibrarianRequest) (*LibrarianDTO, error) {
	employeeID := strings.TrimSpace(req.EmployeeID)
	if req.UserID == uuid.Nil || employeeID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Please provide all required fields")
	}
	permissions, err := normalizePermissions(req.Permissions)
	if err != nil {
		return nil, err
	}
	if len(permissions) == 0 {
		permissions = append(permissions, enums.DefaultLibrarianPermissions...)
	}
	department := strings.TrimSpace(req.Department)
	if department == "" {
		department = defaultDepartment
	}

	var created uuid.UUID
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		userRepo := users.NewRepository(tx)
		libRepo := NewRepository(tx)

		user, err := userRepo.FindByID(ctx, req.UserID)
		if err != nil {
			if db.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "User not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
		}

		exists, err := libRepo.ExistsForUser(ctx, user.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check librarian")
		}
		if exists {
			return pkgerrors.New(pkgerrors.CodeConflict, "Librarian profile already exists")
		}
		exists, err = libRepo.ExistsForEmployeeID(ctx, employeeID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check employee id")
		}
		if exists {
			return pkgerrors.New(pkgerrors.CodeConflict, "Employee ID already in use")
		}

		librarian := &models.Librarian{
			UserID:      user.ID,
			EmployeeID:  employeeID,
			Department:  department,
			Permissions: permissions,
		}
		if err := libRepo.Create(ctx, librarian); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeConflict, "Librarian profile already exists")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create librarian")
		}

		if user.Role == enums.UserRoleStudent {
			if err := userRepo.SetRole(ctx, user.ID, enums.UserRoleLibrarian); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "promote user")
			}
		}
		created = librarian.ID
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, created)
}

func (s *service) List(ctx context.Context, params pagination.Params) (*ListResult, error) {
	params = params.Normalize()
	rows, total, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list librarians")
	}
	return &ListResult{Librarians: fromRows(rows), Meta: pagination.NewMeta(params, total)}, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*LibrarianDTO, error) {
	row, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLookupError(err)
	}
	return fromRow(row), nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, req UpdateLibrarianRequest) (*LibrarianDTO, error) {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return nil, mapLookupError(err)
	}

	var patch models.Librarian
	var columns []string
	if req.Department != nil && strings.TrimSpace(*req.Department) != "" {
		patch.Department = strings.TrimSpace(*req.Department)
		columns = append(columns, "department")
	}
	if len(req.Permissions) > 0 {
		permissions, err := normalizePermissions(req.Permissions)
		if err != nil {
			return nil, err
		}
		patch.Permissions = permissions
		columns = append(columns, "permissions")
	}
	if len(columns) > 0 {
		if err := s.repo.Update(ctx, id, patch, columns); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update librarian")
		}
	}
	return s.Get(ctx, id)
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	ok, err := s.repo.Delete(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete librarian")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeNotFound, "Librarian not found")
	}
	return nil
}

func (s *service) Stats(ctx context.Context, id uuid.UUID) (*StatsDTO, error) {
	dto, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &StatsDTO{
		BooksIssued:   dto.BooksIssued,
		BooksReturned: dto.BooksReturned,
		Permissions:   dto.Permissions,
	}, nil
}

func normalizePermissions(in []enums.LibrarianPermission) ([]enums.LibrarianPermission, error) {
	out := make([]enums.LibrarianPermission, 0, len(in))
	for _, p := range in {
		if !p.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("Invalid permission %q", p))
		}
		out = append(out, p)
	}
	return lo.Uniq(out), nil
}

func mapLookupError(err error) error {
	if db.IsNotFound(err) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "Librarian not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load librarian")
}
