package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/library-backend/pkg/enums"
)

// Loan records one borrowed copy. BookID is a plain reference so loans
// survive book deletion. At most one outstanding loan exists per
// (borrower, book), enforced by a partial unique index.
type Loan struct {
	ID           uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	BorrowerID   uuid.UUID        `gorm:"column:borrower_id;type:uuid;not null;uniqueIndex:idx_loans_outstanding,where:status = 'outstanding'"`
	BookID       uuid.UUID        `gorm:"column:book_id;type:uuid;not null;uniqueIndex:idx_loans_outstanding,where:status = 'outstanding';index:idx_loans_book_id"`
	Status       enums.LoanStatus `gorm:"column:status;type:text;not null;default:outstanding"`
	BorrowedAt   time.Time        `gorm:"column:borrowed_at;not null"`
	DueAt        time.Time        `gorm:"column:due_at;not null"`
	ReturnedAt   *time.Time       `gorm:"column:returned_at"`
	FineAssessed decimal.Decimal  `gorm:"column:fine_assessed;type:numeric(12,2);not null;default:0"`
	IssuedBy     *uuid.UUID       `gorm:"column:issued_by;type:uuid"`
	CreatedAt    time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

func (l *Loan) BeforeCreate(*gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}
