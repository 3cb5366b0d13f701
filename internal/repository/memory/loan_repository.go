package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"loan-ledger/internal/domain"
	"loan-ledger/internal/repository"
)

// LoanRepository is the in-memory loan ledger. One mutex covers both the loan
// and repayment tables, so a balance check, decrement and repayment append
// are a single atomic step and loan deletion cascades without a second lock.
type LoanRepository struct {
	mu         sync.Mutex
	nextID     int64
	loans      map[int64]domain.Loan
	repayments map[int64][]domain.Repayment
}

func NewLoanRepository() repository.LoanRepository {
	return &LoanRepository{
		loans:      make(map[int64]domain.Loan),
		repayments: make(map[int64][]domain.Repayment),
	}
}

func (r *LoanRepository) Init(ctx context.Context) error {
	return nil
}

func (r *LoanRepository) Create(ctx context.Context, loan *domain.Loan) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	loan.ID = r.nextID
	loan.CreatedAt = time.Now().UTC()
	loan.UpdatedAt = nil

	r.loans[loan.ID] = *loan
	return loan.ID, nil
}

func (r *LoanRepository) Get(ctx context.Context, id int64) (*domain.Loan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	loan, ok := r.loans[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return copyLoan(loan), nil
}

func (r *LoanRepository) List(ctx context.Context) ([]domain.Loan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	loans := make([]domain.Loan, 0, len(r.loans))
	for _, loan := range r.loans {
		loans = append(loans, *copyLoan(loan))
	}
	sort.Slice(loans, func(i, j int) bool { return loans[i].ID < loans[j].ID })
	return loans, nil
}

func (r *LoanRepository) ListByBorrowerName(ctx context.Context, name string) ([]domain.Loan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var loans []domain.Loan
	for _, loan := range r.loans {
		if loan.BorrowerName == name {
			loans = append(loans, *copyLoan(loan))
		}
	}
	sort.Slice(loans, func(i, j int) bool { return loans[i].ID < loans[j].ID })
	return loans, nil
}

func (r *LoanRepository) ListRepayments(ctx context.Context, loanID int64) ([]domain.Repayment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]domain.Repayment(nil), r.repayments[loanID]...), nil
}

func (r *LoanRepository) ApplyRepayment(ctx context.Context, loanID int64, amount decimal.Decimal) (*domain.Loan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	loan, ok := r.loans[loanID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if amount.GreaterThan(loan.CurrentBalance) {
		return nil, domain.ErrInsufficientFunds
	}

	now := time.Now().UTC()
	loan.CurrentBalance = loan.CurrentBalance.Sub(amount)
	loan.UpdatedAt = &now
	r.loans[loanID] = loan
	r.repayments[loanID] = append(r.repayments[loanID], domain.Repayment{
		LoanID:    loanID,
		Amount:    amount,
		CreatedAt: now,
	})

	return copyLoan(loan), nil
}

func (r *LoanRepository) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.loans[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.loans, id)
	delete(r.repayments, id)
	return nil
}

func copyLoan(loan domain.Loan) *domain.Loan {
	if loan.UpdatedAt != nil {
		at := *loan.UpdatedAt
		loan.UpdatedAt = &at
	}
	return &loan
}
