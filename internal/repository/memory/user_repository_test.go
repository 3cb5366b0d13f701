package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"loan-ledger/internal/domain"
)

func TestUserRepository_CreateDuplicate(t *testing.T) {
	t.Parallel()

	repo := NewUserRepository()
	ctx := context.Background()

	err := repo.Create(ctx, &domain.User{ID: "u1", Username: "alice", PasswordHash: "h1", Role: domain.RoleUser})
	require.NoError(t, err)

	err = repo.Create(ctx, &domain.User{ID: "u2", Username: "alice", PasswordHash: "h2", Role: domain.RoleUser})
	require.ErrorIs(t, err, domain.ErrConflict)

	// the stored record is untouched by the failed insert
	stored, err := repo.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, "u1", stored.ID)
	require.Equal(t, "h1", stored.PasswordHash)
}

func TestUserRepository_ConcurrentRegistrationsSameUsername(t *testing.T) {
	t.Parallel()

	repo := NewUserRepository()
	ctx := context.Background()

	const attempts = 50
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = repo.Create(ctx, &domain.User{ID: "u", Username: "dup", PasswordHash: "h"})
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range errs {
		if err == nil {
			successes++
		} else {
			require.ErrorIs(t, err, domain.ErrConflict)
		}
	}
	require.Equal(t, 1, successes)
}

func TestUserRepository_Lifecycle(t *testing.T) {
	t.Parallel()

	repo := NewUserRepository()
	ctx := context.Background()

	user := &domain.User{ID: "u1", Username: "bob", PasswordHash: "old", Role: domain.RoleUser}
	require.NoError(t, repo.Create(ctx, user))

	require.NoError(t, repo.UpdatePasswordHash(ctx, "u1", "new"))
	stored, err := repo.GetByID(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, "new", stored.PasswordHash)

	require.NoError(t, repo.Delete(ctx, "u1"))
	_, err = repo.GetByID(ctx, "u1")
	require.ErrorIs(t, err, domain.ErrNotFound)
	_, err = repo.GetByUsername(ctx, "bob")
	require.ErrorIs(t, err, domain.ErrNotFound)

	// the name is free again after deletion
	require.NoError(t, repo.Create(ctx, &domain.User{ID: "u2", Username: "bob", PasswordHash: "h"}))
}

func TestUserRepository_MissingRecords(t *testing.T) {
	t.Parallel()

	repo := NewUserRepository()
	ctx := context.Background()

	_, err := repo.GetByID(ctx, "missing")
	require.ErrorIs(t, err, domain.ErrNotFound)
	require.True(t, errors.Is(repo.UpdatePasswordHash(ctx, "missing", "h"), domain.ErrNotFound))
	require.True(t, errors.Is(repo.Delete(ctx, "missing"), domain.ErrNotFound))
}
