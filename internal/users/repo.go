package users

import (
	"context"
	"time"

	"github.com/angelmondragon/library-backend/internal/repo"
	"github.com/angelmondragon/library-backend/pkg/db/models"
	"github.com/angelmondragon/library-backend/pkg/enums"
	"github.com/angelmondragon/library-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository exposes user-related persistence operations.
type Repository struct {
	repo.Base
}

// NewRepository constructs a users repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// WithTx returns a repository bound to tx.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{Base: r.Base.WithTx(tx)}
}

// Create inserts a new user and returns the persisted model.
func (r *Repository) Create(ctx context.Context, dto CreateUserDTO) (*models.User, error) {
	user := dto.ToModel()
	if err := r.DB(ctx).Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// FindByEmail retrieves the user matching the provided email.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.DB(ctx).Where("email = ?", NormalizeEmail(email)).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByID loads a user by their UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.DB(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// List returns one page of users, newest first, and the total row count.
func (r *Repository) List(ctx context.Context, params pagination.Params) ([]models.User, int64, error) {
	var total int64
	if err := r.DB(ctx).Model(&models.User{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	users := []models.User{}
	q := r.DB(ctx).Order("created_at DESC")
	if err := repo.Paginate(q, params).Find(&users).Error; err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// Update applies the column set to the user.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	return r.DB(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Updates(fields).Error
}

// SetRole overwrites the user's role.
func (r *Repository) SetRole(ctx context.Context, id uuid.UUID, role enums.UserRole) error {
	return r.DB(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumn("role", role).Error
}

// UpdateLastLogin refreshes the user's last_login_at timestamp.
func (r *Repository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.DB(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumn("last_login_at", at).Error
}

// Delete removes the user together with their borrower and librarian profiles.
// It reports gorm.ErrRecordNotFound when no user matched.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.DB(ctx).Transaction(func(tx *gorm.DB) error {
		var borrowerIDs []uuid.UUID
		if err := tx.Model(&models.Borrower{}).Where("user_id = ?", id).Pluck("id", &borrowerIDs).Error; err != nil {
			return err
		}
		if len(borrowerIDs) > 0 {
			if err := tx.Where("borrower_id IN ?", borrowerIDs).Delete(&models.Loan{}).Error; err != nil {
				return err
			}
			if err := tx.Where("id IN ?", borrowerIDs).Delete(&models.Borrower{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("user_id = ?", id).Delete(&models.Librarian{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&models.User{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
