package lending

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/library-backend/internal/repo"
	"github.com/angelmondragon/library-backend/pkg/db/models"
	"github.com/angelmondragon/library-backend/pkg/enums"
)

// Ledger persists borrower balances and loan entries.
type Ledger struct {
	repo.Base
}

// NewLedger constructs a ledger bound to the provided GORM DB.
func NewLedger(db *gorm.DB) *Ledger {
	return &Ledger{Base: repo.NewBase(db)}
}

// EnsureBorrower returns the borrower profile for userID, creating an empty
// one when none exists.
func (l *Ledger) EnsureBorrower(ctx context.Context, userID uuid.UUID) (*models.Borrower, error) {
	candidate := models.Borrower{UserID: userID, FineBalance: decimal.Zero}
	err := l.DB(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, DoNothing: true}).
		Create(&candidate).Error
	if err != nil {
		return nil, err
	}
	return l.FindBorrowerByUser(ctx, userID)
}

func (l *Ledger) FindBorrower(ctx context.Context, id uuid.UUID) (*models.Borrower, error) {
	var borrower models.Borrower
	if err := l.DB(ctx).First(&borrower, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &borrower, nil
}

func (l *Ledger) FindBorrowerByUser(ctx context.Context, userID uuid.UUID) (*models.Borrower, error) {
	var borrower models.Borrower
	if err := l.DB(ctx).Where("user_id = ?", userID).First(&borrower).Error; err != nil {
		return nil, err
	}
	return &borrower, nil
}

func (l *Ledger) HasOutstanding(ctx context.Context, borrowerID, bookID uuid.UUID) (bool, error) {
	var count int64
	err := l.DB(ctx).Model(&models.Loan{}).
		Where("borrower_id = ? AND book_id = ? AND status = ?", borrowerID, bookID, enums.LoanStatusOutstanding).
		Count(&count).Error
	return count > 0, err
}

func (l *Ledger) FindOutstanding(ctx context.Context, borrowerID, bookID uuid.UUID) (*models.Loan, error) {
	var loan models.Loan
	err := l.DB(ctx).
		Where("borrower_id = ? AND book_id = ? AND status = ?", borrowerID, bookID, enums.LoanStatusOutstanding).
		First(&loan).Error
	if err != nil {
		return nil, err
	}
	return &loan, nil
}

func (l *Ledger) CreateLoan(ctx context.Context, loan *models.Loan) error {
	return l.DB(ctx).Create(loan).Error
}

// MarkReturned closes an outstanding loan. It reports false when the loan was
// already returned.
func (l *Ledger) MarkReturned(ctx context.Context, loanID uuid.UUID, at time.Time, fine decimal.Decimal) (bool, error) {
	res := l.DB(ctx).Model(&models.Loan{}).
		Where("id = ? AND status = ?", loanID, enums.LoanStatusOutstanding).
		Updates(map[string]any{
			"status":        enums.LoanStatusReturned,
			"returned_at":   at,
			"fine_assessed": fine,
		})
	return res.RowsAffected == 1, res.Error
}

func (l *Ledger) IncrementIssued(ctx context.Context, borrowerID uuid.UUID) error {
	return l.DB(ctx).Model(&models.Borrower{}).
		Where("id = ?", borrowerID).
		UpdateColumn("total_books_issued", gorm.Expr("total_books_issued + 1")).Error
}

// AddFine accrues amount onto the borrower's balance.
func (l *Ledger) AddFine(ctx context.Context, borrowerID uuid.UUID, amount decimal.Decimal) error {
	return l.DB(ctx).Model(&models.Borrower{}).
		Where("id = ?", borrowerID).
		UpdateColumn("fine_balance", gorm.Expr("fine_balance + ?", amount)).Error
}

// DeductFine lowers the balance by amount. It matches nothing when the
// balance is smaller than amount.
func (l *Ledger) DeductFine(ctx context.Context, borrowerID uuid.UUID, amount decimal.Decimal) (bool, error) {
	res := l.DB(ctx).Model(&models.Borrower{}).
		Where("id = ? AND fine_balance >= ?", borrowerID, amount).
		UpdateColumn("fine_balance", gorm.Expr("fine_balance - ?", amount))
	return res.RowsAffected == 1, res.Error
}

// ListLoans returns a borrower's loans, newest first, optionally by status.
func (l *Ledger) ListLoans(ctx context.Context, borrowerID uuid.UUID, status *enums.LoanStatus) ([]models.Loan, error) {
	q := l.DB(ctx).Where("borrower_id = ?", borrowerID)
	if status != nil {
		q = q.Where("status = ?", *status)
	}
	loans := []models.Loan{}
	err := q.Order("borrowed_at DESC").Find(&loans).Error
	return loans, err
}
