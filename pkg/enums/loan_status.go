package enums

import "fmt"

// LoanStatus tracks whether a borrowed copy is still out.
type LoanStatus string

const (
	LoanStatusOutstanding LoanStatus = "outstanding"
	LoanStatusReturned    LoanStatus = "returned"
)

var validLoanStatuses = []LoanStatus{
	LoanStatusOutstanding,
	LoanStatusReturned,
}

// String implements fmt.Stringer.
func (s LoanStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known LoanStatus.
func (s LoanStatus) IsValid() bool {
	for _, candidate := range validLoanStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseLoanStatus converts raw input into a LoanStatus.
func ParseLoanStatus(value string) (LoanStatus, error) {
	for _, candidate := range validLoanStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid loan status %q", value)
}
