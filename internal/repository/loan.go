package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"loan-ledger/internal/domain"
)

// LoanRepository owns the loan and repayment tables. Read-modify-write
// operations (ApplyRepayment, Delete with its cascade) are atomic: two
// concurrent repayments can never both observe the pre-mutation balance.
type LoanRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, loan *domain.Loan) (int64, error)
	Get(ctx context.Context, id int64) (*domain.Loan, error)
	List(ctx context.Context) ([]domain.Loan, error)
	ListByBorrowerName(ctx context.Context, name string) ([]domain.Loan, error)
	ListRepayments(ctx context.Context, loanID int64) ([]domain.Repayment, error)
	// ApplyRepayment checks the balance, decrements it, appends a repayment
	// record and stamps UpdatedAt in one step. It returns
	// domain.ErrNotFound for an absent loan and domain.ErrInsufficientFunds
	// when amount exceeds the current balance, leaving both tables untouched.
	ApplyRepayment(ctx context.Context, loanID int64, amount decimal.Decimal) (*domain.Loan, error)
	// Delete removes the loan and cascades deletion of its repayments.
	Delete(ctx context.Context, id int64) error
}
