package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Borrower is the per-user lending profile (a "student" in the public API).
type Borrower struct {
	ID               uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	UserID           uuid.UUID       `gorm:"column:user_id;type:uuid;not null;uniqueIndex:idx_borrowers_user_id"`
	RollNumber       *string         `gorm:"column:roll_number"`
	Department       *string         `gorm:"column:department"`
	Semester         *int            `gorm:"column:semester"`
	TotalBooksIssued int             `gorm:"column:total_books_issued;not null;default:0"`
	FineBalance      decimal.Decimal `gorm:"column:fine_balance;type:numeric(12,2);not null;default:0"`
	Loans            []Loan          `gorm:"foreignKey:BorrowerID;constraint:OnDelete:CASCADE"`
	CreatedAt        time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (b *Borrower) BeforeCreate(*gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}
