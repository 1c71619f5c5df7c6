package content

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/library-backend/internal/repo"
	"github.com/angelmondragon/library-backend/pkg/db/models"
	"github.com/angelmondragon/library-backend/pkg/enums"
	"github.com/angelmondragon/library-backend/pkg/pagination"
)

// sortColumns maps public sort keys to columns.
var sortColumns = map[string]string{
	"createdAt":       "created_at",
	"updatedAt":       "updated_at",
	"title":           "title",
	"author":          "author",
	"views":           "views",
	"downloads":       "downloads",
	"rating":          "rating_average",
	"rating.average":  "rating_average",
	"publicationYear": "publication_year",
}

// Filters narrows a content listing. Empty fields are ignored.
type Filters struct {
	Type     enums.ContentType
	Category string
	Author   string
	Subject  string
	Keyword  string
	Year     *int
}

// Totals aggregates the stored file records.
type Totals struct {
	Files int64 `gorm:"column:files"`
	Bytes int64 `gorm:"column:bytes"`
}

// Repository persists digital content, reviews and the download log.
type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{Base: r.Base.WithTx(tx)}
}

func (r *Repository) Create(ctx context.Context, item *models.Content) error {
	return r.DB(ctx).Create(item).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Content, error) {
	var item models.Content
	if err := r.DB(ctx).Where("id = ?", id).Take(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// FindByIDs loads the given items keyed by id.
func (r *Repository) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Content, error) {
	out := make(map[uuid.UUID]models.Content, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var items []models.Content
	if err := r.DB(ctx).Where("id IN ?", ids).Find(&items).Error; err != nil {
		return nil, err
	}
	for _, item := range items {
		out[item.ID] = item
	}
	return out, nil
}

// ExistsByIdentifier reports whether another item already carries the ISBN or ISSN.
func (r *Repository) ExistsByIdentifier(ctx context.Context, column, value string) (bool, error) {
	var count int64
	err := r.DB(ctx).Model(&models.Content{}).Where(column+" = ?", value).Count(&count).Error
	return count > 0, err
}

// List returns one page of published items.
func (r *Repository) List(ctx context.Context, filters Filters, sortBy string, params pagination.Params) ([]models.Content, int64, error) {
	q := applyFilters(r.published(ctx), filters)

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	items := []models.Content{}
	q = q.Order(repo.OrderBy(sortBy, sortColumns, "-createdAt"))
	if err := repo.Paginate(q, params).Find(&items).Error; err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// Search matches query against title, author, subject, description and keywords.
func (r *Repository) Search(ctx context.Context, query string, filters Filters, sortBy string, limit int) ([]models.Content, error) {
	pattern := repo.ContainsPattern(query)
	q := r.published(ctx).Where(
		r.DB(ctx).
			Where(repo.Like("title"), pattern).
			Or(repo.Like("author"), pattern).
			Or(repo.Like("subject"), pattern).
			Or(repo.Like("description"), pattern).
			Or(repo.Like("keywords"), pattern),
	)
	q = applyFilters(q, filters)

	items := []models.Content{}
	err := q.Order(repo.OrderBy(sortBy, sortColumns, "-rating")).Limit(limit).Find(&items).Error
	return items, err
}

// Top returns published items ordered by sortBy, optionally within a category.
func (r *Repository) Top(ctx context.Context, category, sortBy, fallback string, limit int) ([]models.Content, error) {
	q := r.published(ctx)
	if category != "" {
		q = q.Where("category = ?", category)
	}
	items := []models.Content{}
	err := q.Order(repo.OrderBy(sortBy, sortColumns, fallback)).Limit(limit).Find(&items).Error
	return items, err
}

// Update writes the named columns of patch. Struct updates keep the JSON
// serializer on keywords and tags.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, patch models.Content, columns []string) error {
	return r.DB(ctx).Model(&models.Content{}).Where("id = ?", id).Select(columns).Updates(&patch).Error
}

// IncrementViews bumps the view counter and reports whether the item exists.
func (r *Repository) IncrementViews(ctx context.Context, id uuid.UUID) (bool, error) {
	return r.increment(ctx, id, "views")
}

func (r *Repository) IncrementDownloads(ctx context.Context, id uuid.UUID) (bool, error) {
	return r.increment(ctx, id, "downloads")
}

func (r *Repository) increment(ctx context.Context, id uuid.UUID, column string) (bool, error) {
	res := r.DB(ctx).
		Model(&models.Content{}).
		Where("id = ?", id).
		UpdateColumn(column, gorm.Expr(column+" + 1"))
	return res.RowsAffected == 1, res.Error
}

// Delete removes an item with its reviews and download log.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	if err := r.DB(ctx).Where("content_id = ?", id).Delete(&models.ContentReview{}).Error; err != nil {
		return false, err
	}
	if err := r.DB(ctx).Where("content_id = ?", id).Delete(&models.ContentDownload{}).Error; err != nil {
		return false, err
	}
	res := r.DB(ctx).Where("id = ?", id).Delete(&models.Content{})
	return res.RowsAffected == 1, res.Error
}

func (r *Repository) AddReview(ctx context.Context, review *models.ContentReview) error {
	return r.DB(ctx).Create(review).Error
}

// RatingStats returns the review count and rating sum for an item.
func (r *Repository) RatingStats(ctx context.Context, contentID uuid.UUID) (count int64, sum int64, err error) {
	var row struct {
		Reviews int64 `gorm:"column:reviews"`
		Total   int64 `gorm:"column:total"`
	}
	err = r.DB(ctx).
		Model(&models.ContentReview{}).
		Select("COUNT(*) AS reviews, COALESCE(SUM(rating), 0) AS total").
		Where("content_id = ?", contentID).
		Scan(&row).Error
	return row.Reviews, row.Total, err
}

func (r *Repository) LogDownload(ctx context.Context, entry *models.ContentDownload) error {
	return r.DB(ctx).Create(entry).Error
}

// Downloads returns a user's download log, newest first.
func (r *Repository) Downloads(ctx context.Context, userID uuid.UUID, limit int) ([]models.ContentDownload, error) {
	entries := []models.ContentDownload{}
	err := r.DB(ctx).
		Where("user_id = ?", userID).
		Order("downloaded_at DESC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}

// Totals counts every stored record and sums their file sizes.
func (r *Repository) Totals(ctx context.Context) (Totals, error) {
	var totals Totals
	err := r.DB(ctx).
		Model(&models.Content{}).
		Select("COUNT(*) AS files, COALESCE(SUM(file_size), 0) AS bytes").
		Scan(&totals).Error
	return totals, err
}

func (r *Repository) published(ctx context.Context) *gorm.DB {
	return r.DB(ctx).Model(&models.Content{}).Where("is_published = ?", true)
}

func applyFilters(q *gorm.DB, f Filters) *gorm.DB {
	if f.Type != "" {
		q = q.Where("type = ?", f.Type)
	}
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.Author != "" {
		q = q.Where(repo.Like("author"), repo.ContainsPattern(f.Author))
	}
	if f.Subject != "" {
		q = q.Where(repo.Like("subject"), repo.ContainsPattern(f.Subject))
	}
	if f.Keyword != "" {
		q = q.Where(repo.Like("keywords"), repo.ContainsPattern(f.Keyword))
	}
	if f.Year != nil {
		q = q.Where("publication_year = ?", *f.Year)
	}
	return q
}
