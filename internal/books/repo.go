package books

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/library-backend/internal/repo"
	"github.com/angelmondragon/library-backend/pkg/db/models"
	"github.com/angelmondragon/library-backend/pkg/pagination"
)

// Repository persists catalog books.
type Repository struct {
	repo.Base
}

// NewRepository constructs a books repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// Filters narrows the catalog listing.
type Filters struct {
	Category      string
	Author        string
	Search        string
	AvailableOnly bool
}

func (r *Repository) Create(ctx context.Context, book *models.Book) error {
	return r.DB(ctx).Create(book).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Book, error) {
	var book models.Book
	if err := r.DB(ctx).First(&book, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &book, nil
}

func (r *Repository) FindByISBN(ctx context.Context, isbn string) (*models.Book, error) {
	var book models.Book
	if err := r.DB(ctx).Where("isbn = ?", isbn).First(&book).Error; err != nil {
		return nil, err
	}
	return &book, nil
}

// FindByIDs loads the books for ids, keyed by id. Missing ids are skipped.
func (r *Repository) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Book, error) {
	out := make(map[uuid.UUID]models.Book, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var list []models.Book
	if err := r.DB(ctx).Where("id IN ?", ids).Find(&list).Error; err != nil {
		return nil, err
	}
	for _, b := range list {
		out[b.ID] = b
	}
	return out, nil
}

// List returns one page of books ordered by title.
func (r *Repository) List(ctx context.Context, filters Filters, params pagination.Params) ([]models.Book, int64, error) {
	q := r.DB(ctx).Model(&models.Book{})
	if filters.Category != "" {
		q = q.Where("category = ?", filters.Category)
	}
	if filters.Author != "" {
		q = q.Where(repo.Like("author"), repo.ContainsPattern(filters.Author))
	}
	if filters.AvailableOnly {
		q = q.Where("available_quantity > 0")
	}
	if filters.Search != "" {
		pattern := repo.ContainsPattern(filters.Search)
		q = q.Where(
			r.DB(ctx).Where(repo.Like("title"), pattern).
				Or(repo.Like("author"), pattern).
				Or(repo.Like("isbn"), pattern),
		)
	}

	q = q.Session(&gorm.Session{})
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	books := []models.Book{}
	if err := repo.Paginate(q.Order("title ASC"), params).Find(&books).Error; err != nil {
		return nil, 0, err
	}
	return books, total, nil
}

// Search matches the query against title, author and category, or the ISBN exactly.
func (r *Repository) Search(ctx context.Context, query string, limit int) ([]models.Book, error) {
	pattern := repo.ContainsPattern(query)
	books := []models.Book{}
	err := r.DB(ctx).
		Where(repo.Like("title"), pattern).
		Or(repo.Like("author"), pattern).
		Or(repo.Like("category"), pattern).
		Or("isbn = ?", query).
		Order("title ASC").
		Limit(limit).
		Find(&books).Error
	return books, err
}

// Update applies the column set to the book.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	return r.DB(ctx).Model(&models.Book{}).Where("id = ?", id).Updates(fields).Error
}

// SetQuantity changes the total copies and shifts available copies by the same
// delta. It matches nothing when the new total is below the copies on loan.
func (r *Repository) SetQuantity(ctx context.Context, id uuid.UUID, quantity int) (bool, error) {
	res := r.DB(ctx).
		Model(&models.Book{}).
		Where("id = ? AND ? >= quantity - available_quantity", id, quantity).
		Updates(map[string]any{
			"available_quantity": gorm.Expr("? - (quantity - available_quantity)", quantity),
			"quantity":           quantity,
		})
	return res.RowsAffected == 1, res.Error
}

// Delete removes the book. Loans referencing it are kept.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.DB(ctx).Where("id = ?", id).Delete(&models.Book{})
	return res.RowsAffected == 1, res.Error
}

// TakeCopy decrements available copies when at least one is on the shelf.
func (r *Repository) TakeCopy(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.DB(ctx).
		Model(&models.Book{}).
		Where("id = ? AND available_quantity > 0", id).
		UpdateColumn("available_quantity", gorm.Expr("available_quantity - 1"))
	return res.RowsAffected == 1, res.Error
}

// ReturnCopy increments available copies, capped at the total quantity.
func (r *Repository) ReturnCopy(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.DB(ctx).
		Model(&models.Book{}).
		Where("id = ? AND available_quantity < quantity", id).
		UpdateColumn("available_quantity", gorm.Expr("available_quantity + 1"))
	return res.RowsAffected == 1, res.Error
}
