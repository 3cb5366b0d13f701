package service

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"loan-ledger/internal/auth"
	"loan-ledger/internal/domain"
	"loan-ledger/internal/repository"
	"loan-ledger/internal/repository/memory"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestAuthService(t *testing.T, allowSelfServeAdmin bool) (AuthService, repository.UserRepository) {
	t.Helper()
	users := memory.NewUserRepository()
	tokens := auth.NewTokenIssuer("test-secret", time.Hour)
	return NewAuthService(users, tokens, allowSelfServeAdmin, testLogger()), users
}

func TestAuthService_Register(t *testing.T) {
	t.Parallel()

	svc, users := newTestAuthService(t, true)
	ctx := context.Background()

	session, err := svc.Register(ctx, "alice", "Passw0rd!", false)
	require.NoError(t, err)
	require.NotEmpty(t, session.UserID)
	require.Equal(t, domain.RoleUser, session.Role)
	require.Equal(t, int64(3600), session.ExpiresIn)

	claims, err := svc.Verify(session.Token)
	require.NoError(t, err)
	require.Equal(t, session.UserID, claims.Subject)
	require.Equal(t, "alice", claims.Username)
	require.Equal(t, domain.RoleUser, claims.Role)

	// the plaintext is never persisted
	stored, err := users.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	require.NotEqual(t, "Passw0rd!", stored.PasswordHash)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("Passw0rd!")))
}

func TestAuthService_RegisterAdminFlag(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	svc, _ := newTestAuthService(t, true)
	session, err := svc.Register(ctx, "root", "Passw0rd!", true)
	require.NoError(t, err)
	require.Equal(t, domain.RoleAdmin, session.Role)

	// with self-serve admin disabled the flag is ignored, not rejected
	svc, _ = newTestAuthService(t, false)
	session, err = svc.Register(ctx, "wannabe", "Passw0rd!", true)
	require.NoError(t, err)
	require.Equal(t, domain.RoleUser, session.Role)
}

func TestAuthService_RegisterDuplicate(t *testing.T) {
	t.Parallel()

	svc, users := newTestAuthService(t, true)
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice", "Passw0rd!", false)
	require.NoError(t, err)
	before, err := users.GetByUsername(ctx, "alice")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "alice", "Different1", false)
	require.ErrorIs(t, err, domain.ErrConflict)

	after, err := users.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, before.PasswordHash, after.PasswordHash)
}

func TestAuthService_LoginFailuresAreIndistinguishable(t *testing.T) {
	t.Parallel()

	svc, _ := newTestAuthService(t, true)
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice", "Passw0rd!", false)
	require.NoError(t, err)

	_, unknownErr := svc.Login(ctx, "nobody", "Passw0rd!")
	_, wrongErr := svc.Login(ctx, "alice", "WrongPass1")

	require.ErrorIs(t, unknownErr, domain.ErrInvalidCredentials)
	require.ErrorIs(t, wrongErr, domain.ErrInvalidCredentials)
	require.Equal(t, unknownErr.Error(), wrongErr.Error())
}

func TestAuthService_Login(t *testing.T) {
	t.Parallel()

	svc, _ := newTestAuthService(t, true)
	ctx := context.Background()

	reg, err := svc.Register(ctx, "alice", "Passw0rd!", false)
	require.NoError(t, err)

	session, err := svc.Login(ctx, "alice", "Passw0rd!")
	require.NoError(t, err)
	require.Equal(t, reg.UserID, session.UserID)
	require.Equal(t, domain.RoleUser, session.Role)
	require.NotEmpty(t, session.Token)
}

func TestAuthService_ChangePassword(t *testing.T) {
	t.Parallel()

	svc, _ := newTestAuthService(t, true)
	ctx := context.Background()

	reg, err := svc.Register(ctx, "alice", "Passw0rd!", false)
	require.NoError(t, err)

	err = svc.ChangePassword(ctx, reg.UserID, "WrongPass1", "NewPassw0rd")
	require.ErrorIs(t, err, domain.ErrInvalidCredentials)

	require.NoError(t, svc.ChangePassword(ctx, reg.UserID, "Passw0rd!", "NewPassw0rd"))

	_, err = svc.Login(ctx, "alice", "Passw0rd!")
	require.ErrorIs(t, err, domain.ErrInvalidCredentials)
	_, err = svc.Login(ctx, "alice", "NewPassw0rd")
	require.NoError(t, err)
}

func TestAuthService_ChangePasswordMissingAccount(t *testing.T) {
	t.Parallel()

	svc, _ := newTestAuthService(t, true)
	err := svc.ChangePassword(context.Background(), "missing", "whatever", "NewPassw0rd")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAuthService_DeleteAccount(t *testing.T) {
	t.Parallel()

	svc, _ := newTestAuthService(t, true)
	ctx := context.Background()

	reg, err := svc.Register(ctx, "alice", "Passw0rd!", false)
	require.NoError(t, err)

	require.ErrorIs(t, svc.DeleteAccount(ctx, reg.UserID, "WrongPass1"), domain.ErrInvalidCredentials)
	// an absent account reads the same as a wrong password
	require.ErrorIs(t, svc.DeleteAccount(ctx, "missing", "Passw0rd!"), domain.ErrInvalidCredentials)

	require.NoError(t, svc.DeleteAccount(ctx, reg.UserID, "Passw0rd!"))
	_, err = svc.Lookup(ctx, reg.UserID)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAuthService_LookupIsSanitized(t *testing.T) {
	t.Parallel()

	svc, _ := newTestAuthService(t, true)
	ctx := context.Background()

	reg, err := svc.Register(ctx, "alice", "Passw0rd!", false)
	require.NoError(t, err)

	user, err := svc.Lookup(ctx, reg.UserID)
	require.NoError(t, err)
	require.Equal(t, "alice", user.Username)
	require.Equal(t, domain.RoleUser, user.Role)
	require.Empty(t, user.PasswordHash)
}
