package librarians

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/library-backend/internal/repo"
	"github.com/angelmondragon/library-backend/pkg/db/models"
	"github.com/angelmondragon/library-backend/pkg/pagination"
)

// Repository persists librarian profiles.
type Repository struct {
	repo.Base
}

// NewRepository constructs a librarian repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// Row is a librarian profile joined with its user identity.
type Row struct {
	models.Librarian
	UserName  string `gorm:"column:user_name"`
	UserEmail string `gorm:"column:user_email"`
}

func (r *Repository) Create(ctx context.Context, librarian *models.Librarian) error {
	return r.DB(ctx).Create(librarian).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*Row, error) {
	var row Row
	err := r.joined(ctx).Where("librarians.id = ?", id).Take(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *Repository) ExistsForUser(ctx context.Context, userID uuid.UUID) (bool, error) {
	var count int64
	err := r.DB(ctx).Model(&models.Librarian{}).Where("user_id = ?", userID).Count(&count).Error
	return count > 0, err
}

func (r *Repository) ExistsForEmployeeID(ctx context.Context, employeeID string) (bool, error) {
	var count int64
	err := r.DB(ctx).Model(&models.Librarian{}).Where("employee_id = ?", employeeID).Count(&count).Error
	return count > 0, err
}

// List returns one page of librarians ordered by employee id.
func (r *Repository) List(ctx context.Context, params pagination.Params) ([]Row, int64, error) {
	var total int64
	if err := r.DB(ctx).Model(&models.Librarian{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	rows := []Row{}
	q := r.joined(ctx).Order("librarians.employee_id ASC")
	if err := repo.Paginate(q, params).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// Update writes the named columns of patch. Struct updates keep the JSON
// serializer on permissions.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, patch models.Librarian, columns []string) error {
	return r.DB(ctx).Model(&models.Librarian{}).Where("id = ?", id).Select(columns).Updates(&patch).Error
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.DB(ctx).Where("id = ?", id).Delete(&models.Librarian{})
	return res.RowsAffected == 1, res.Error
}

// IncrementIssued bumps the issue counter of the librarian profile owned by
// userID. It reports false when the user has no profile.
func (r *Repository) IncrementIssued(ctx context.Context, userID uuid.UUID) (bool, error) {
	return r.increment(ctx, userID, "books_issued")
}

// IncrementReturned bumps the return counter of the profile owned by userID.
func (r *Repository) IncrementReturned(ctx context.Context, userID uuid.UUID) (bool, error) {
	return r.increment(ctx, userID, "books_returned")
}

func (r *Repository) increment(ctx context.Context, userID uuid.UUID, column string) (bool, error) {
	res := r.DB(ctx).
		Model(&models.Librarian{}).
		Where("user_id = ?", userID).
		UpdateColumn(column, gorm.Expr(column+" + 1"))
	return res.RowsAffected > 0, res.Error
}

func (r *Repository) joined(ctx context.Context) *gorm.DB {
	return r.DB(ctx).
		Model(&models.Librarian{}).
		Select("librarians.*, users.name AS user_name, users.email AS user_email").
		Joins("LEFT JOIN users ON users.id = librarians.user_id")
}
