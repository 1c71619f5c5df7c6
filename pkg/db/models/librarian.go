package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/library-backend/pkg/enums"
)

// Librarian is the staff profile attached to a librarian user.
type Librarian struct {
	ID            uuid.UUID                   `gorm:"column:id;type:uuid;primaryKey"`
	UserID        uuid.UUID                   `gorm:"column:user_id;type:uuid;not null;uniqueIndex:idx_librarians_user_id"`
	EmployeeID    string                      `gorm:"column:employee_id;not null;uniqueIndex:idx_librarians_employee_id"`
	Department    string                      `gorm:"column:department;not null;default:Library"`
	Permissions   []enums.LibrarianPermission `gorm:"column:permissions;type:text;serializer:json"`
	BooksIssued   int                         `gorm:"column:books_issued;not null;default:0"`
	BooksReturned int                         `gorm:"column:books_returned;not null;default:0"`
	CreatedAt     time.Time                   `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time                   `gorm:"column:updated_at;autoUpdateTime"`
}

func (l *Librarian) BeforeCreate(*gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}
