package librarians

import (
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/angelmondragon/library-backend/pkg/enums"
)

// UserSummary is the identity attached to a staff profile.
type UserSummary struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}

// LibrarianDTO is the public shape of a librarian profile.
type LibrarianDTO struct {
	ID            uuid.UUID                   `json:"id"`
	UserID        uuid.UUID                   `json:"userId"`
	User          *UserSummary                `json:"user,omitempty"`
	EmployeeID    string                      `json:"employeeId"`
	Department    string                      `json:"department"`
	Permissions   []enums.LibrarianPermission `json:"permissions"`
	BooksIssued   int                         `json:"booksIssued"`
	BooksReturned int                         `json:"booksReturned"`
	CreatedAt     time.Time                   `json:"createdAt"`
	UpdatedAt     time.Time                   `json:"updatedAt"`
}

// StatsDTO reports a librarian's lending counters.
type StatsDTO struct {
	BooksIssued   int                         `json:"booksIssued"`
	BooksReturned int                         `json:"booksReturned"`
	Permissions   []enums.LibrarianPermission `json:"permissions"`
}

// CreateLibrarianRequest attaches a staff profile to an existing user.
type CreateLibrarianRequest struct {
	UserID      uuid.UUID                   `json:"userId" validate:"required"`
	EmployeeID  string                      `json:"employeeId" validate:"required,max=64"`
	Department  string                      `json:"department,omitempty" validate:"omitempty,max=100"`
	Permissions []enums.LibrarianPermission `json:"permissions,omitempty"`
}

// UpdateLibrarianRequest carries optional profile changes.
type UpdateLibrarianRequest struct {
	Department  *string                     `json:"department,omitempty" validate:"omitempty,min=1,max=100"`
	Permissions []enums.LibrarianPermission `json:"permissions,omitempty"`
}

func fromRow(row *Row) *LibrarianDTO {
	if row == nil {
		return nil
	}
	dto := &LibrarianDTO{
		ID:            row.ID,
		UserID:        row.UserID,
		EmployeeID:    row.EmployeeID,
		Department:    row.Department,
		Permissions:   lo.Ternary(row.Permissions == nil, []enums.LibrarianPermission{}, row.Permissions),
		BooksIssued:   row.BooksIssued,
		BooksReturned: row.BooksReturned,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}
	if row.UserEmail != "" {
		dto.User = &UserSummary{ID: row.UserID, Name: row.UserName, Email: row.UserEmail}
	}
	return dto
}

func fromRows(rows []Row) []LibrarianDTO {
	return lo.Map(rows, func(r Row, _ int) LibrarianDTO {
		return *fromRow(&r)
	})
}
