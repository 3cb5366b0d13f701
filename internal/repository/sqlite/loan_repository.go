package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"loan-ledger/internal/domain"
	"loan-ledger/internal/repository"
)

// Monetary columns are stored as canonical decimal strings, never REAL, so
// balances survive round-trips without binary floating-point drift.
const createLoansTable = `
CREATE TABLE IF NOT EXISTS loans (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	borrower_name TEXT NOT NULL,
	borrower_id TEXT NOT NULL DEFAULT '',
	initial_funding_amount TEXT NOT NULL,
	current_balance TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	updated_at DATETIME
);
`

const createRepaymentsTable = `
CREATE TABLE IF NOT EXISTS repayments (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	loan_id INTEGER NOT NULL REFERENCES loans(id) ON DELETE CASCADE,
	amount TEXT NOT NULL,
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_repayments_loan_id ON repayments(loan_id);
`

type LoanRepository struct {
	db *sql.DB
}

func NewLoanRepository(db *sql.DB) repository.LoanRepository {
	return &LoanRepository{db: db}
}

func (r *LoanRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createLoansTable); err != nil {
		return fmt.Errorf("create loans table: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, createRepaymentsTable); err != nil {
		return fmt.Errorf("create repayments table: %w", err)
	}
	return nil
}

func (r *LoanRepository) Create(ctx context.Context, loan *domain.Loan) (int64, error) {
	loan.CreatedAt = time.Now().UTC()
	loan.UpdatedAt = nil

	res, err := r.db.ExecContext(ctx, `
INSERT INTO loans (borrower_name, borrower_id, initial_funding_amount, current_balance, created_at)
VALUES (?, ?, ?, ?, ?)`,
		loan.BorrowerName,
		loan.BorrowerID,
		loan.InitialFundingAmount.String(),
		loan.CurrentBalance.String(),
		loan.CreatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("insert loan: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("loan last insert id: %w", err)
	}
	loan.ID = id
	return id, nil
}

func (r *LoanRepository) Get(ctx context.Context, id int64) (*domain.Loan, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, borrower_name, borrower_id, initial_funding_amount, current_balance, created_at, updated_at
FROM loans
WHERE id = ?`,
		id,
	)
	return scanLoan(row)
}

func (r *LoanRepository) List(ctx context.Context) ([]domain.Loan, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, borrower_name, borrower_id, initial_funding_amount, current_balance, created_at, updated_at
FROM loans
ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("list loans: %w", err)
	}
	defer rows.Close()
	return collectLoans(rows)
}

func (r *LoanRepository) ListByBorrowerName(ctx context.Context, name string) ([]domain.Loan, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, borrower_name, borrower_id, initial_funding_amount, current_balance, created_at, updated_at
FROM loans
WHERE borrower_name = ?
ORDER BY id`,
		name,
	)
	if err != nil {
		return nil, fmt.Errorf("list loans by borrower: %w", err)
	}
	defer rows.Close()
	return collectLoans(rows)
}

func (r *LoanRepository) ListRepayments(ctx context.Context, loanID int64) ([]domain.Repayment, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT loan_id, amount, created_at
FROM repayments
WHERE loan_id = ?
ORDER BY id`,
		loanID,
	)
	if err != nil {
		return nil, fmt.Errorf("list repayments: %w", err)
	}
	defer rows.Close()

	var repayments []domain.Repayment
	for rows.Next() {
		var rep domain.Repayment
		var amount string
		if err := rows.Scan(&rep.LoanID, &amount, &rep.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan repayment: %w", err)
		}
		rep.Amount, err = decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("parse repayment amount: %w", err)
		}
		repayments = append(repayments, rep)
	}
	return repayments, rows.Err()
}

func (r *LoanRepository) ApplyRepayment(ctx context.Context, loanID int64, amount decimal.Decimal) (*domain.Loan, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin repayment tx: %w", err)
	}
	defer tx.Rollback()

	loan, err := scanLoan(tx.QueryRowContext(ctx, `
SELECT id, borrower_name, borrower_id, initial_funding_amount, current_balance, created_at, updated_at
FROM loans
WHERE id = ?`,
		loanID,
	))
	if err != nil {
		return nil, err
	}
	if amount.GreaterThan(loan.CurrentBalance) {
		return nil, domain.ErrInsufficientFunds
	}

	now := time.Now().UTC()
	loan.CurrentBalance = loan.CurrentBalance.Sub(amount)
	loan.UpdatedAt = &now

	if _, err := tx.ExecContext(ctx, `
UPDATE loans SET current_balance = ?, updated_at = ? WHERE id = ?`,
		loan.CurrentBalance.String(),
		now,
		loanID,
	); err != nil {
		return nil, fmt.Errorf("update loan balance: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
INSERT INTO repayments (loan_id, amount, created_at) VALUES (?, ?, ?)`,
		loanID,
		amount.String(),
		now,
	); err != nil {
		return nil, fmt.Errorf("insert repayment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit repayment tx: %w", err)
	}
	return loan, nil
}

func (r *LoanRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM loans WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete loan: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete loan rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanLoan(row interface {
	Scan(dest ...any) error
}) (*domain.Loan, error) {
	var loan domain.Loan
	var initial, balance string
	var updatedAt sql.NullTime
	if err := row.Scan(
		&loan.ID,
		&loan.BorrowerName,
		&loan.BorrowerID,
		&initial,
		&balance,
		&loan.CreatedAt,
		&updatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scan loan: %w", err)
	}

	var err error
	if loan.InitialFundingAmount, err = decimal.NewFromString(initial); err != nil {
		return nil, fmt.Errorf("parse initial funding amount: %w", err)
	}
	if loan.CurrentBalance, err = decimal.NewFromString(balance); err != nil {
		return nil, fmt.Errorf("parse current balance: %w", err)
	}
	if updatedAt.Valid {
		at := updatedAt.Time
		loan.UpdatedAt = &at
	}
	return &loan, nil
}

func collectLoans(rows *sql.Rows) ([]domain.Loan, error) {
	var loans []domain.Loan
	for rows.Next() {
		loan, err := scanLoan(rows)
		if err != nil {
			return nil, err
		}
		loans = append(loans, *loan)
	}
	return loans, rows.Err()
}
