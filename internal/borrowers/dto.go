package borrowers

import (
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/angelmondragon/library-backend/internal/lending"
)

// UserSummary is the identity attached to a borrower profile.
type UserSummary struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}

// BorrowerDTO is the public shape of a borrower profile.
type BorrowerDTO struct {
	ID               uuid.UUID         `json:"id"`
	UserID           uuid.UUID         `json:"userId"`
	User             *UserSummary      `json:"user,omitempty"`
	RollNumber       *string           `json:"rollNumber"`
	Department       *string           `json:"department"`
	Semester         *int              `json:"semester"`
	TotalBooksIssued int               `json:"totalBooksIssued"`
	Fine             float64           `json:"fine"`
	BorrowedBooks    []lending.LoanDTO `json:"borrowedBooks,omitempty"`
	CreatedAt        time.Time         `json:"createdAt"`
	UpdatedAt        time.Time         `json:"updatedAt"`
}

// CreateBorrowerRequest attaches a borrower profile to a user. A missing
// userId means the caller's own account.
type CreateBorrowerRequest struct {
	UserID     uuid.UUID `json:"userId"`
	RollNumber string    `json:"rollNumber" validate:"required,max=64"`
	Department string    `json:"department" validate:"required,max=100"`
	Semester   int       `json:"semester" validate:"required,min=1,max=12"`
}

// UpdateBorrowerRequest carries optional profile changes.
type UpdateBorrowerRequest struct {
	RollNumber *string `json:"rollNumber,omitempty" validate:"omitempty,min=1,max=64"`
	Department *string `json:"department,omitempty" validate:"omitempty,min=1,max=100"`
	Semester   *int    `json:"semester,omitempty" validate:"omitempty,min=1,max=12"`
}

func fromRow(row *Row) *BorrowerDTO {
	if row == nil {
		return nil
	}
	dto := &BorrowerDTO{
		ID:               row.ID,
		UserID:           row.UserID,
		RollNumber:       row.RollNumber,
		Department:       row.Department,
		Semester:         row.Semester,
		TotalBooksIssued: row.TotalBooksIssued,
		Fine:             row.FineBalance.Round(2).InexactFloat64(),
		CreatedAt:        row.CreatedAt,
		UpdatedAt:        row.UpdatedAt,
	}
	if row.UserEmail != "" {
		dto.User = &UserSummary{ID: row.UserID, Name: row.UserName, Email: row.UserEmail}
	}
	return dto
}

func fromRows(rows []Row) []BorrowerDTO {
	return lo.Map(rows, func(r Row, _ int) BorrowerDTO {
		return *fromRow(&r)
	})
}
