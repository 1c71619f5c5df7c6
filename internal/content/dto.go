package content

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/angelmondragon/library-backend/pkg/db/models"
	"github.com/angelmondragon/library-backend/pkg/enums"
)

// FileDTO describes the stored file of an item.
type FileDTO struct {
	OriginalName string  `json:"originalName"`
	MimeType     string  `json:"mimeType"`
	Size         int64   `json:"size"`
	SizeMB       float64 `json:"sizeMB"`
}

// RatingDTO is the aggregate review score.
type RatingDTO struct {
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}

// ContentDTO is the public shape of a digital content item.
type ContentDTO struct {
	ID              uuid.UUID         `json:"id"`
	Title           string            `json:"title"`
	Author          string            `json:"author"`
	Type            enums.ContentType `json:"type"`
	Subject         string            `json:"subject"`
	Category        string            `json:"category"`
	Keywords        []string          `json:"keywords"`
	Tags            []string          `json:"tags"`
	Description     *string           `json:"description,omitempty"`
	Publisher       *string           `json:"publisher,omitempty"`
	PublicationYear *int              `json:"publicationYear,omitempty"`
	ISBN            *string           `json:"isbn,omitempty"`
	ISSN            *string           `json:"issn,omitempty"`
	Language        string            `json:"language"`
	Pages           *int              `json:"pages,omitempty"`
	File            FileDTO           `json:"file"`
	Views           int               `json:"views"`
	Downloads       int               `json:"downloads"`
	Rating          RatingDTO         `json:"rating"`
	IsPublished     bool              `json:"isPublished"`
	AccessLevel     enums.AccessLevel `json:"accessLevel"`
	UploadedBy      uuid.UUID         `json:"uploadedBy"`
	CreatedAt       time.Time         `json:"createdAt"`
	UpdatedAt       time.Time         `json:"updatedAt"`
}

// DownloadDTO is one entry of a user's download log.
type DownloadDTO struct {
	ContentID    uuid.UUID   `json:"contentId"`
	DownloadedAt time.Time   `json:"downloadDate"`
	Content      *ContentDTO `json:"content,omitempty"`
}

// StorageReport summarises object store usage against the quota.
type StorageReport struct {
	TotalSize     int64   `json:"totalSize"`
	TotalObjects  int64   `json:"totalObjects"`
	TotalSizeMB   float64 `json:"totalSizeMB"`
	RemainingMB   float64 `json:"remainingMB"`
	PercentUsed   float64 `json:"percentUsed"`
	QuotaMB       int     `json:"quotaMB"`
	TotalFiles    int64   `json:"totalFiles"`
	DBTotalSize   int64   `json:"dbTotalSize"`
	DBTotalSizeMB float64 `json:"dbTotalSizeMB"`
}

// Metadata carries the descriptive fields submitted with an upload.
type Metadata struct {
	Title           string   `validate:"required,max=300"`
	Author          string   `validate:"required,max=200"`
	Type            string   `validate:"required"`
	Subject         string   `validate:"required,max=200"`
	Category        string   `validate:"required,max=100"`
	Keywords        []string `validate:"omitempty,dive,max=100"`
	Tags            []string `validate:"omitempty,dive,max=100"`
	Description     *string  `validate:"omitempty,max=5000"`
	Publisher       *string  `validate:"omitempty,max=200"`
	PublicationYear *int     `validate:"omitempty,min=0,max=9999"`
	ISBN            *string  `validate:"omitempty,max=32"`
	ISSN            *string  `validate:"omitempty,max=32"`
	Language        string   `validate:"omitempty,max=50"`
	Pages           *int     `validate:"omitempty,min=1"`
	AccessLevel     string
}

// UpdateContentRequest carries optional item changes.
type UpdateContentRequest struct {
	Title       *string            `json:"title,omitempty" validate:"omitempty,min=1,max=300"`
	Author      *string            `json:"author,omitempty" validate:"omitempty,min=1,max=200"`
	Subject     *string            `json:"subject,omitempty" validate:"omitempty,min=1,max=200"`
	Keywords    []string           `json:"keywords,omitempty" validate:"omitempty,dive,max=100"`
	Description *string            `json:"description,omitempty" validate:"omitempty,max=5000"`
	Category    *string            `json:"category,omitempty" validate:"omitempty,min=1,max=100"`
	Tags        []string           `json:"tags,omitempty" validate:"omitempty,dive,max=100"`
	AccessLevel *enums.AccessLevel `json:"accessLevel,omitempty"`
	IsPublished *bool              `json:"isPublished,omitempty"`
}

// ReviewRequest rates an item.
type ReviewRequest struct {
	Rating  int     `json:"rating"`
	Comment *string `json:"comment,omitempty" validate:"omitempty,max=2000"`
}

// SearchFilters are the optional JSON filters of a search.
type SearchFilters struct {
	Type     string `json:"type"`
	Category string `json:"category"`
	Author   string `json:"author"`
	Subject  string `json:"subject"`
	Year     *int   `json:"year"`
}

func FromModel(c *models.Content) *ContentDTO {
	if c == nil {
		return nil
	}
	return &ContentDTO{
		ID:              c.ID,
		Title:           c.Title,
		Author:          c.Author,
		Type:            c.Type,
		Subject:         c.Subject,
		Category:        c.Category,
		Keywords:        lo.Ternary(c.Keywords == nil, []string{}, c.Keywords),
		Tags:            lo.Ternary(c.Tags == nil, []string{}, c.Tags),
		Description:     c.Description,
		Publisher:       c.Publisher,
		PublicationYear: c.PublicationYear,
		ISBN:            c.ISBN,
		ISSN:            c.ISSN,
		Language:        c.Language,
		Pages:           c.Pages,
		File: FileDTO{
			OriginalName: c.FileName,
			MimeType:     c.FileMimeType,
			Size:         c.FileSize,
			SizeMB:       megabytes(c.FileSize),
		},
		Views:       c.Views,
		Downloads:   c.Downloads,
		Rating:      RatingDTO{Average: c.RatingAverage, Count: c.RatingCount},
		IsPublished: c.IsPublished,
		AccessLevel: c.AccessLevel,
		UploadedBy:  c.UploadedBy,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

func FromModels(list []models.Content) []ContentDTO {
	return lo.Map(list, func(c models.Content, _ int) ContentDTO {
		return *FromModel(&c)
	})
}

// normalizeKeywords trims and lower-cases keywords, dropping blanks and duplicates.
func normalizeKeywords(in []string) []string {
	out := lo.FilterMap(in, func(k string, _ int) (string, bool) {
		k = strings.ToLower(strings.TrimSpace(k))
		return k, k != ""
	})
	return lo.Uniq(out)
}

func normalizeTags(in []string) []string {
	out := lo.FilterMap(in, func(t string, _ int) (string, bool) {
		t = strings.TrimSpace(t)
		return t, t != ""
	})
	return lo.Uniq(out)
}

// SplitList splits a comma separated form value.
func SplitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	return strings.Split(raw, ",")
}
