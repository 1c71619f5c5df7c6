package lending

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	// LoanPeriod is the default time a borrower may keep a book.
	LoanPeriod = 14 * 24 * time.Hour
	day        = 24 * time.Hour
)

// FinePerDay is charged for every started day past the due date.
var FinePerDay = decimal.NewFromInt(10)

// DaysLate counts started days between due and returned. Any fraction of a
// day counts as a full day; returns on or before due are zero.
func DaysLate(due, returned time.Time) int64 {
	if !returned.After(due) {
		return 0
	}
	late := returned.Sub(due)
	days := int64(late / day)
	if late%day != 0 {
		days++
	}
	return days
}

// ComputeFine returns the fine owed for a loan due at due and returned at returned.
func ComputeFine(due, returned time.Time) decimal.Decimal {
	return FinePerDay.Mul(decimal.NewFromInt(DaysLate(due, returned)))
}

// DueDate returns the default due date for a loan started at borrowed.
func DueDate(borrowed time.Time) time.Time {
	return borrowed.Add(LoanPeriod)
}
