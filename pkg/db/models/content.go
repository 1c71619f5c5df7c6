package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/library-backend/pkg/enums"
)

// Content is an uploaded digital item (ebook, paper, thesis, ...).
// Keywords and tags are JSON text so LIKE filters work on every dialect.
type Content struct {
	ID              uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	Title           string            `gorm:"column:title;not null"`
	Author          string            `gorm:"column:author;not null"`
	Type            enums.ContentType `gorm:"column:type;type:text;not null;index:idx_content_type"`
	Subject         string            `gorm:"column:subject;not null"`
	Category        string            `gorm:"column:category;not null;index:idx_content_category"`
	Keywords        []string          `gorm:"column:keywords;type:text;serializer:json"`
	Tags            []string          `gorm:"column:tags;type:text;serializer:json"`
	Description     *string           `gorm:"column:description"`
	Publisher       *string           `gorm:"column:publisher"`
	PublicationYear *int              `gorm:"column:publication_year"`
	ISBN            *string           `gorm:"column:isbn;uniqueIndex:idx_content_isbn"`
	ISSN            *string           `gorm:"column:issn;uniqueIndex:idx_content_issn"`
	Language        string            `gorm:"column:language;not null;default:English"`
	Pages           *int              `gorm:"column:pages"`
	FileName        string            `gorm:"column:file_name;not null"`
	FileKey         string            `gorm:"column:file_key;not null"`
	FileMimeType    string            `gorm:"column:file_mime_type;not null"`
	FileSize        int64             `gorm:"column:file_size;not null"`
	Views           int               `gorm:"column:views;not null;default:0"`
	Downloads       int               `gorm:"column:downloads;not null;default:0"`
	RatingAverage   float64           `gorm:"column:rating_average;type:numeric(3,1);not null;default:0"`
	RatingCount     int               `gorm:"column:rating_count;not null;default:0"`
	IsPublished     bool              `gorm:"column:is_published;not null;default:true"`
	AccessLevel     enums.AccessLevel `gorm:"column:access_level;type:text;not null;default:public"`
	UploadedBy      uuid.UUID         `gorm:"column:uploaded_by;type:uuid;not null"`
	Reviews         []ContentReview   `gorm:"foreignKey:ContentID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (Content) TableName() string { return "digital_content" }

func (c *Content) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// ContentReview is one user's rating of a content item.
type ContentReview struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	ContentID uuid.UUID `gorm:"column:content_id;type:uuid;not null;index:idx_content_reviews_content_id"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null"`
	Rating    int       `gorm:"column:rating;not null"`
	Comment   *string   `gorm:"column:comment"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (r *ContentReview) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// ContentDownload logs a user download of a content item.
type ContentDownload struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	ContentID    uuid.UUID `gorm:"column:content_id;type:uuid;not null;index:idx_content_downloads_content_id"`
	UserID       uuid.UUID `gorm:"column:user_id;type:uuid;not null;index:idx_content_downloads_user_id"`
	DownloadedAt time.Time `gorm:"column:downloaded_at;not null"`
}

func (d *ContentDownload) BeforeCreate(*gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}
