package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Loan tracks an amount funded to a borrower and the balance still owed.
// BorrowerID is empty for admin-seeded records that predate registration.
type Loan struct {
	ID                   int64
	BorrowerName         string
	BorrowerID           string
	InitialFundingAmount decimal.Decimal
	CurrentBalance       decimal.Decimal
	CreatedAt            time.Time
	UpdatedAt            *time.Time
}

// Repayment is an append-only record reducing a loan's outstanding balance.
type Repayment struct {
	LoanID    int64
	Amount    decimal.Decimal
	CreatedAt time.Time
}

// LoanView is a loan together with its repayment history.
type LoanView struct {
	Loan       Loan
	Repayments []Repayment
}
