package books

import (
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/angelmondragon/library-backend/pkg/db/models"
)

// BookDTO is the public shape of a catalog book.
type BookDTO struct {
	ID                uuid.UUID `json:"id"`
	Title             string    `json:"title"`
	Author            string    `json:"author"`
	ISBN              string    `json:"isbn"`
	Description       *string   `json:"description,omitempty"`
	Category          string    `json:"category"`
	Quantity          int       `json:"quantity"`
	AvailableQuantity int       `json:"availableQuantity"`
	IsAvailable       bool      `json:"isAvailable"`
	PublicationYear   *int      `json:"publicationYear,omitempty"`
	Publisher         *string   `json:"publisher,omitempty"`
	CoverImage        *string   `json:"coverImage,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// BookSummary is the compact book reference embedded in loans.
type BookSummary struct {
	ID     uuid.UUID `json:"id"`
	Title  string    `json:"title"`
	Author string    `json:"author"`
	ISBN   string    `json:"isbn"`
}

// CreateBookRequest is the catalog-edit payload for a new book.
type CreateBookRequest struct {
	Title           string  `json:"title" validate:"required,max=300"`
	Author          string  `json:"author" validate:"required,max=200"`
	ISBN            string  `json:"isbn" validate:"required,max=32"`
	Description     *string `json:"description,omitempty" validate:"omitempty,max=5000"`
	Category        string  `json:"category" validate:"required,max=100"`
	Quantity        int     `json:"quantity" validate:"required,min=1"`
	PublicationYear *int    `json:"publicationYear,omitempty" validate:"omitempty,min=0,max=3000"`
	Publisher       *string `json:"publisher,omitempty" validate:"omitempty,max=200"`
	CoverImage      *string `json:"coverImage,omitempty" validate:"omitempty,url"`
}

// UpdateBookRequest carries optional book changes.
type UpdateBookRequest struct {
	Title           *string `json:"title,omitempty" validate:"omitempty,min=1,max=300"`
	Author          *string `json:"author,omitempty" validate:"omitempty,min=1,max=200"`
	Description     *string `json:"description,omitempty" validate:"omitempty,max=5000"`
	Category        *string `json:"category,omitempty" validate:"omitempty,min=1,max=100"`
	Quantity        *int    `json:"quantity,omitempty" validate:"omitempty,min=1"`
	PublicationYear *int    `json:"publicationYear,omitempty" validate:"omitempty,min=0,max=3000"`
	Publisher       *string `json:"publisher,omitempty" validate:"omitempty,max=200"`
	CoverImage      *string `json:"coverImage,omitempty" validate:"omitempty,url"`
}

func FromModel(b *models.Book) *BookDTO {
	if b == nil {
		return nil
	}
	return &BookDTO{
		ID:                b.ID,
		Title:             b.Title,
		Author:            b.Author,
		ISBN:              b.ISBN,
		Description:       b.Description,
		Category:          b.Category,
		Quantity:          b.Quantity,
		AvailableQuantity: b.AvailableQuantity,
		IsAvailable:       b.IsAvailable(),
		PublicationYear:   b.PublishedYear,
		Publisher:         b.Publisher,
		CoverImage:        b.CoverImage,
		CreatedAt:         b.CreatedAt,
		UpdatedAt:         b.UpdatedAt,
	}
}

func FromModels(list []models.Book) []BookDTO {
	return lo.Map(list, func(b models.Book, _ int) BookDTO {
		return *FromModel(&b)
	})
}

func SummaryOf(b *models.Book) *BookSummary {
	if b == nil {
		return nil
	}
	return &BookSummary{ID: b.ID, Title: b.Title, Author: b.Author, ISBN: b.ISBN}
}
