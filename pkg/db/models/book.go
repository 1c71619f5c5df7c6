package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Book is a physical title with a fixed number of copies.
type Book struct {
	ID                uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Title             string    `gorm:"column:title;not null"`
	Author            string    `gorm:"column:author;not null"`
	ISBN              string    `gorm:"column:isbn;not null;uniqueIndex:idx_books_isbn"`
	Description       *string   `gorm:"column:description"`
	Category          string    `gorm:"column:category;not null;index:idx_books_category"`
	Quantity          int       `gorm:"column:quantity;not null;default:1"`
	AvailableQuantity int       `gorm:"column:available_quantity;not null;default:1"`
	PublishedYear     *int      `gorm:"column:published_year"`
	Publisher         *string   `gorm:"column:publisher"`
	CoverImage        *string   `gorm:"column:cover_image"`
	CreatedAt         time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// IsAvailable is derived from the copy count and never persisted.
func (b Book) IsAvailable() bool {
	return b.AvailableQuantity > 0
}

// OnLoan returns the number of copies currently borrowed.
func (b Book) OnLoan() int {
	return b.Quantity - b.AvailableQuantity
}

func (b *Book) BeforeCreate(*gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}
