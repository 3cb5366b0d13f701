package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"loan-ledger/internal/auth"
	"loan-ledger/internal/domain"
	"loan-ledger/internal/repository"
)

// LoanService coordinates loan bookkeeping. Every owner-scoped operation is
// checked against the authorization guard before any mutation or read result.
type LoanService interface {
	Create(ctx context.Context, borrowerName string, amount decimal.Decimal, requester auth.Requester) (*domain.LoanView, error)
	Get(ctx context.Context, id int64, requester auth.Requester) (*domain.LoanView, error)
	ListAll(ctx context.Context, requester auth.Requester) ([]domain.LoanView, error)
	ListByBorrowerName(ctx context.Context, name string, requester auth.Requester) ([]domain.LoanView, error)
	ApplyRepayment(ctx context.Context, loanID int64, amount decimal.Decimal, requester auth.Requester) (*domain.LoanView, error)
	Delete(ctx context.Context, id int64, requester auth.Requester) error
	SeedDefaults(ctx context.Context) error
}

type loanService struct {
	loans  repository.LoanRepository
	users  repository.UserRepository
	logger *logrus.Logger
}

func NewLoanService(loans repository.LoanRepository, users repository.UserRepository, logger *logrus.Logger) LoanService {
	return &loanService{
		loans:  loans,
		users:  users,
		logger: logger,
	}
}

func (s *loanService) Create(ctx context.Context, borrowerName string, amount decimal.Decimal, requester auth.Requester) (*domain.LoanView, error) {
	borrowerName = strings.TrimSpace(borrowerName)
	if borrowerName == "" {
		return nil, fmt.Errorf("%w: borrower name is required", domain.ErrValidation)
	}
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: funding amount must be positive", domain.ErrValidation)
	}

	borrowerID := ""
	borrower, err := s.users.GetByUsername(ctx, borrowerName)
	switch {
	case err == nil:
		if !auth.CanAccess(requester, borrower.ID) {
			return nil, domain.ErrUnauthorized
		}
		borrowerID = borrower.ID
	case errors.Is(err, domain.ErrNotFound):
		// Only admins may seed loans for borrowers without an account.
		if requester.Role != domain.RoleAdmin {
			return nil, domain.ErrUnauthorized
		}
	default:
		return nil, err
	}

	loan := &domain.Loan{
		BorrowerName:         borrowerName,
		BorrowerID:           borrowerID,
		InitialFundingAmount: amount,
		CurrentBalance:       amount,
	}
	if _, err := s.loans.Create(ctx, loan); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{"loan_id": loan.ID, "borrower": borrowerName}).Info("loan created")
	return &domain.LoanView{Loan: *loan}, nil
}

func (s *loanService) Get(ctx context.Context, id int64, requester auth.Requester) (*domain.LoanView, error) {
	loan, err := s.loans.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !auth.CanAccess(requester, loan.BorrowerID) {
		return nil, domain.ErrUnauthorized
	}
	return s.view(ctx, loan)
}

func (s *loanService) ListAll(ctx context.Context, requester auth.Requester) ([]domain.LoanView, error) {
	if requester.Role != domain.RoleAdmin {
		return nil, domain.ErrUnauthorized
	}
	loans, err := s.loans.List(ctx)
	if err != nil {
		return nil, err
	}
	return s.views(ctx, loans)
}

func (s *loanService) ListByBorrowerName(ctx context.Context, name string, requester auth.Requester) ([]domain.LoanView, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: borrower name is required", domain.ErrValidation)
	}

	loans, err := s.loans.ListByBorrowerName(ctx, name)
	if err != nil {
		return nil, err
	}
	if len(loans) == 0 {
		return nil, domain.ErrNotFound
	}

	if requester.Role != domain.RoleAdmin {
		owned := loans[:0]
		for _, loan := range loans {
			if auth.CanAccess(requester, loan.BorrowerID) {
				owned = append(owned, loan)
			}
		}
		if len(owned) == 0 {
			return nil, domain.ErrUnauthorized
		}
		loans = owned
	}
	return s.views(ctx, loans)
}

func (s *loanService) ApplyRepayment(ctx context.Context, loanID int64, amount decimal.Decimal, requester auth.Requester) (*domain.LoanView, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: repayment amount must be positive", domain.ErrValidation)
	}

	loan, err := s.loans.Get(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if !auth.CanAccess(requester, loan.BorrowerID) {
		return nil, domain.ErrUnauthorized
	}

	// The repository re-checks the balance under its own lock; the read above
	// only serves authorization.
	updated, err := s.loans.ApplyRepayment(ctx, loanID, amount)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{"loan_id": loanID, "balance": updated.CurrentBalance.String()}).Info("repayment applied")
	return s.view(ctx, updated)
}

func (s *loanService) Delete(ctx context.Context, id int64, requester auth.Requester) error {
	loan, err := s.loans.Get(ctx, id)
	if err != nil {
		return err
	}
	if !auth.CanAccess(requester, loan.BorrowerID) {
		return domain.ErrUnauthorized
	}

	if err := s.loans.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.WithField("loan_id", id).Info("loan deleted")
	return nil
}

// SeedDefaults inserts the stock demo loans once, when the ledger is empty.
func (s *loanService) SeedDefaults(ctx context.Context) error {
	existing, err := s.loans.List(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	seeds := []struct {
		name   string
		amount int64
	}{
		{"ABC Corp", 10000},
		{"XYZ Ltd", 25000},
		{"123 Industries", 50000},
	}
	for _, seed := range seeds {
		amount := decimal.NewFromInt(seed.amount)
		loan := &domain.Loan{
			BorrowerName:         seed.name,
			InitialFundingAmount: amount,
			CurrentBalance:       amount,
		}
		if _, err := s.loans.Create(ctx, loan); err != nil {
			return fmt.Errorf("seed loan %q: %w", seed.name, err)
		}
	}
	s.logger.Infof("seeded %d default loans", len(seeds))
	return nil
}

func (s *loanService) view(ctx context.Context, loan *domain.Loan) (*domain.LoanView, error) {
	repayments, err := s.loans.ListRepayments(ctx, loan.ID)
	if err != nil {
		return nil, err
	}
	return &domain.LoanView{Loan: *loan, Repayments: repayments}, nil
}

func (s *loanService) views(ctx context.Context, loans []domain.Loan) ([]domain.LoanView, error) {
	views := make([]domain.LoanView, 0, len(loans))
	for i := range loans {
		v, err := s.view(ctx, &loans[i])
		if err != nil {
			return nil, err
		}
		views = append(views, *v)
	}
	return views, nil
}
