package borrowers

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/library-backend/internal/lending"
	"github.com/angelmondragon/library-backend/internal/users"
	pkgAuth "github.com/angelmondragon/library-backend/pkg/auth"
	"github.com/angelmondragon/library-backend/pkg/db"
	"github.com/angelmondragon/library-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/library-backend/pkg/errors"
	"github.com/angelmondragon/library-backend/pkg/pagination"
)

// Service manages borrower (student) profiles.
type Service interface {
	Create(ctx context.Context, actor pkgAuth.Principal, req CreateBorrowerRequest) (*BorrowerDTO, error)
	List(ctx context.Context, actor pkgAuth.Principal, filters Filters, params pagination.Params) (*ListResult, error)
	Get(ctx context.Context, actor pkgAuth.Principal, id uuid.UUID) (*BorrowerDTO, error)
	Update(ctx context.Context, actor pkgAuth.Principal, id uuid.UUID, req UpdateBorrowerRequest) (*BorrowerDTO, error)
	Delete(ctx context.Context, actor pkgAuth.Principal, id uuid.UUID) error
}

// ListResult is one page of borrowers.
type ListResult struct {
	Borrowers []BorrowerDTO
	Meta      pagination.Meta
}

type loanReader interface {
	BorrowerLoans(ctx context.Context, borrowerID uuid.UUID) ([]lending.LoanDTO, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	repo  *Repository
	tx    txRunner
	loans loanReader
}

// NewService constructs the borrower service.
func NewService(repo *Repository, tx txRunner, loans loanReader) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("borrower repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if loans == nil {
		return nil, fmt.Errorf("loan reader required")
	}
	return &service{repo: repo, tx: tx, loans: loans}, nil
}

func (s *service) Create(ctx context.Context, actor pkgAuth.Principal, req CreateBorrowerRequest) (*BorrowerDTO, error) {
	userID := req.UserID
	if userID == uuid.Nil {
		userID = actor.UserID
	}
	if !actor.CanActOn(userID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "Not authorized to create this profile")
	}
	rollNumber := strings.TrimSpace(req.RollNumber)
	department := strings.TrimSpace(req.Department)
	if rollNumber == "" || department == "" || req.Semester <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Please provide all required fields")
	}

	var created uuid.UUID
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		if _, err := users.NewRepository(tx).FindByID(ctx, userID); err != nil {
			if db.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "User not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
		}

		exists, err := repo.ExistsForUser(ctx, userID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check borrower")
		}
		if exists {
			return errProfileExists()
		}

		semester := req.Semester
		borrower := &models.Borrower{
			UserID:     userID,
			RollNumber: &rollNumber,
			Department: &department,
			Semester:   &semester,
		}
		if err := repo.Create(ctx, borrower); err != nil {
			if db.IsUniqueViolation(err, "") {
				return errProfileExists()
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create borrower")
		}
		created = borrower.ID
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.load(ctx, created)
}

func (s *service) List(ctx context.Context, actor pkgAuth.Principal, filters Filters, params pagination.Params) (*ListResult, error) {
	if !actor.IsStaff() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "Only librarian can access this route")
	}
	params = params.Normalize()
	filters.Department = strings.TrimSpace(filters.Department)
	filters.Search = strings.TrimSpace(filters.Search)

	rows, total, err := s.repo.List(ctx, filters, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list borrowers")
	}
	return &ListResult{Borrowers: fromRows(rows), Meta: pagination.NewMeta(params, total)}, nil
}

// Get returns a profile with its loan history. Students may only read
// their own profile.
func (s *service) Get(ctx context.Context, actor pkgAuth.Principal, id uuid.UUID) (*BorrowerDTO, error) {
	row, err := s.authorized(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	dto := fromRow(row)
	loans, err := s.loans.BorrowerLoans(ctx, id)
	if err != nil {
		return nil, err
	}
	dto.BorrowedBooks = loans
	return dto, nil
}

func (s *service) Update(ctx context.Context, actor pkgAuth.Principal, id uuid.UUID, req UpdateBorrowerRequest) (*BorrowerDTO, error) {
	if _, err := s.authorized(ctx, actor, id); err != nil {
		return nil, err
	}

	var patch models.Borrower
	var columns []string
	if req.RollNumber != nil {
		if v := strings.TrimSpace(*req.RollNumber); v != "" {
			patch.RollNumber = &v
			columns = append(columns, "roll_number")
		}
	}
	if req.Department != nil {
		if v := strings.TrimSpace(*req.Department); v != "" {
			patch.Department = &v
			columns = append(columns, "department")
		}
	}
	if req.Semester != nil {
		if *req.Semester <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "semester must be positive")
		}
		semester := *req.Semester
		patch.Semester = &semester
		columns = append(columns, "semester")
	}
	if len(columns) > 0 {
		if err := s.repo.Update(ctx, id, patch, columns); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update borrower")
		}
	}
	return s.load(ctx, id)
}

func (s *service) Delete(ctx context.Context, actor pkgAuth.Principal, id uuid.UUID) error {
	if !actor.IsAdmin() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "Only admin can delete student profiles")
	}
	var deleted bool
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		deleted, err = s.repo.WithTx(tx).Delete(ctx, id)
		return err
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete borrower")
	}
	if !deleted {
		return errNotFound()
	}
	return nil
}

func (s *service) authorized(ctx context.Context, actor pkgAuth.Principal, id uuid.UUID) (*Row, error) {
	row, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLookupError(err)
	}
	if !actor.CanActOn(row.UserID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "Not authorized to access this profile")
	}
	return row, nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*BorrowerDTO, error) {
	row, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLookupError(err)
	}
	return fromRow(row), nil
}

func mapLookupError(err error) error {
	if db.IsNotFound(err) {
		return errNotFound()
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load borrower")
}

func errNotFound() error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "Student not found")
}

func errProfileExists() error {
	return pkgerrors.New(pkgerrors.CodeConflict, "Student profile already exists")
}
