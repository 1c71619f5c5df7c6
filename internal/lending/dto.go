package lending

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/library-backend/internal/books"
	"github.com/angelmondragon/library-backend/pkg/db/models"
	"github.com/angelmondragon/library-backend/pkg/enums"
)

// BorrowResult confirms a new loan.
type BorrowResult struct {
	Book              *books.BookDTO `json:"book"`
	BorrowerID        uuid.UUID      `json:"borrowerId"`
	LoanID            uuid.UUID      `json:"loanId"`
	BorrowDate        time.Time      `json:"borrowDate"`
	DueDate           time.Time      `json:"dueDate"`
	AvailableQuantity int            `json:"availableQuantity"`
}

// ReturnResult confirms a closed loan and the fine it produced.
type ReturnResult struct {
	BookID     uuid.UUID `json:"bookId"`
	BorrowerID uuid.UUID `json:"borrowerId"`
	ReturnDate time.Time `json:"returnDate"`
	Fine       float64   `json:"fine"`
	TotalFine  float64   `json:"totalFine"`
}

// FineBalance reports a borrower's balance after a settlement.
type FineBalance struct {
	BorrowerID uuid.UUID `json:"borrowerId"`
	Settled    float64   `json:"settled"`
	TotalFine  float64   `json:"totalFine"`
}

// LoanDTO is a loan entry with its overdue state evaluated at read time.
type LoanDTO struct {
	ID          uuid.UUID          `json:"id"`
	BorrowerID  uuid.UUID          `json:"borrowerId"`
	BookID      uuid.UUID          `json:"bookId"`
	Book        *books.BookSummary `json:"book"`
	Status      enums.LoanStatus   `json:"status"`
	IsReturned  bool               `json:"isReturned"`
	BorrowDate  time.Time          `json:"borrowDate"`
	DueDate     time.Time          `json:"dueDate"`
	ReturnDate  *time.Time         `json:"returnDate,omitempty"`
	Fine        float64            `json:"fine"`
	Overdue     bool               `json:"overdue"`
	AccruedFine float64            `json:"accruedFine"`
}

func newLoanDTO(loan models.Loan, book *models.Book, now time.Time) LoanDTO {
	returned := loan.Status == enums.LoanStatusReturned
	dto := LoanDTO{
		ID:         loan.ID,
		BorrowerID: loan.BorrowerID,
		BookID:     loan.BookID,
		Book:       books.SummaryOf(book),
		Status:     loan.Status,
		IsReturned: returned,
		BorrowDate: loan.BorrowedAt,
		DueDate:    loan.DueAt,
		ReturnDate: loan.ReturnedAt,
		Fine:       money(loan.FineAssessed),
	}
	if !returned {
		dto.Overdue = now.After(loan.DueAt)
		dto.AccruedFine = money(ComputeFine(loan.DueAt, now))
	}
	return dto
}

func money(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}
