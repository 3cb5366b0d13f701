package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"loan-ledger/internal/domain"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestUserRepository_SQLite(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	ctx := context.Background()
	repo := NewUserRepository(db)
	require.NoError(t, repo.Init(ctx))

	user := &domain.User{ID: "u1", Username: "alice", PasswordHash: "h1", Role: domain.RoleUser}
	require.NoError(t, repo.Create(ctx, user))

	err := repo.Create(ctx, &domain.User{ID: "u2", Username: "alice", PasswordHash: "h2", Role: domain.RoleUser})
	require.ErrorIs(t, err, domain.ErrConflict)

	stored, err := repo.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, "u1", stored.ID)
	require.Equal(t, domain.RoleUser, stored.Role)

	require.NoError(t, repo.UpdatePasswordHash(ctx, "u1", "h3"))
	stored, err = repo.GetByID(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, "h3", stored.PasswordHash)

	require.NoError(t, repo.Delete(ctx, "u1"))
	_, err = repo.GetByID(ctx, "u1")
	require.ErrorIs(t, err, domain.ErrNotFound)
	require.ErrorIs(t, repo.Delete(ctx, "u1"), domain.ErrNotFound)
}

func TestLoanRepository_SQLite(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	ctx := context.Background()
	repo := NewLoanRepository(db)
	require.NoError(t, repo.Init(ctx))

	funding, _ := decimal.NewFromString("1000.50")
	loan := &domain.Loan{
		BorrowerName:         "alice",
		BorrowerID:           "u1",
		InitialFundingAmount: funding,
		CurrentBalance:       funding,
	}
	id, err := repo.Create(ctx, loan)
	require.NoError(t, err)
	require.Positive(t, id)

	step, _ := decimal.NewFromString("0.25")
	updated, err := repo.ApplyRepayment(ctx, id, step)
	require.NoError(t, err)
	require.Equal(t, "1000.25", updated.CurrentBalance.String())
	require.NotNil(t, updated.UpdatedAt)

	_, err = repo.ApplyRepayment(ctx, id, decimal.NewFromInt(2000))
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)

	stored, err := repo.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "1000.25", stored.CurrentBalance.String())

	repayments, err := repo.ListRepayments(ctx, id)
	require.NoError(t, err)
	require.Len(t, repayments, 1)
	require.True(t, repayments[0].Amount.Equal(step))

	byName, err := repo.ListByBorrowerName(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, byName, 1)

	require.NoError(t, repo.Delete(ctx, id))
	_, err = repo.Get(ctx, id)
	require.ErrorIs(t, err, domain.ErrNotFound)
	// the cascade wiped the repayment history with the loan
	repayments, err = repo.ListRepayments(ctx, id)
	require.NoError(t, err)
	require.Empty(t, repayments)
}
