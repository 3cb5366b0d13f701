package repository

import (
	"context"

	"loan-ledger/internal/domain"
)

// UserRepository defines persistence operations for User records. Create must
// treat the duplicate-username check and the insert as one atomic step and
// return domain.ErrConflict when the name is taken; lookups return
// domain.ErrNotFound for absent records.
type UserRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, user *domain.User) error
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
	UpdatePasswordHash(ctx context.Context, id, passwordHash string) error
	Delete(ctx context.Context, id string) error
}
