package borrowers

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/library-backend/internal/repo"
	"github.com/angelmondragon/library-backend/pkg/db/models"
	"github.com/angelmondragon/library-backend/pkg/pagination"
)

// Repository persists borrower profiles.
type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// WithTx returns a repository bound to tx.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{Base: r.Base.WithTx(tx)}
}

// Row is a borrower profile joined with its user identity.
type Row struct {
	models.Borrower
	UserName  string `gorm:"column:user_name"`
	UserEmail string `gorm:"column:user_email"`
}

const rowColumns = "borrowers.*, users.name AS user_name, users.email AS user_email"

// Filters narrows a borrower listing.
type Filters struct {
	Department string
	Search     string
}

func (r *Repository) Create(ctx context.Context, borrower *models.Borrower) error {
	return r.DB(ctx).Create(borrower).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*Row, error) {
	var row Row
	if err := r.joined(ctx).Where("borrowers.id = ?", id).Take(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *Repository) ExistsForUser(ctx context.Context, userID uuid.UUID) (bool, error) {
	var count int64
	err := r.DB(ctx).Model(&models.Borrower{}).Where("user_id = ?", userID).Count(&count).Error
	return count > 0, err
}

// List returns one page of borrowers ordered by creation time, newest first.
func (r *Repository) List(ctx context.Context, filters Filters, params pagination.Params) ([]Row, int64, error) {
	q := r.DB(ctx).
		Model(&models.Borrower{}).
		Joins("LEFT JOIN users ON users.id = borrowers.user_id")
	if filters.Department != "" {
		q = q.Where(repo.Like("borrowers.department"), repo.ContainsPattern(filters.Department))
	}
	if filters.Search != "" {
		pattern := repo.ContainsPattern(filters.Search)
		q = q.Where(
			r.DB(ctx).
				Where(repo.Like("users.name"), pattern).
				Or(repo.Like("users.email"), pattern).
				Or(repo.Like("borrowers.roll_number"), pattern),
		)
	}

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	rows := []Row{}
	q = q.Select(rowColumns).Order("borrowers.created_at DESC")
	err := repo.Paginate(q, params).Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// Update writes the named profile columns of patch.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, patch models.Borrower, columns []string) error {
	return r.DB(ctx).Model(&models.Borrower{}).Where("id = ?", id).Select(columns).Updates(&patch).Error
}

// Delete removes the profile together with its loan history.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	if err := r.DB(ctx).Where("borrower_id = ?", id).Delete(&models.Loan{}).Error; err != nil {
		return false, err
	}
	res := r.DB(ctx).Where("id = ?", id).Delete(&models.Borrower{})
	return res.RowsAffected == 1, res.Error
}

func (r *Repository) joined(ctx context.Context) *gorm.DB {
	return r.DB(ctx).
		Model(&models.Borrower{}).
		Select(rowColumns).
		Joins("LEFT JOIN users ON users.id = borrowers.user_id")
}
