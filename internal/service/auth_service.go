package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"loan-ledger/internal/auth"
	"loan-ledger/internal/domain"
	"loan-ledger/internal/repository"
)

// Session is the result of a successful registration or login. ExpiresIn is
// the token lifetime in seconds, for clients that schedule re-login.
type Session struct {
	UserID    string
	Username  string
	Role      domain.Role
	Token     string
	ExpiresIn int64
}

// AuthService describes account lifecycle operations.
type AuthService interface {
	Register(ctx context.Context, username, password string, wantAdmin bool) (*Session, error)
	Login(ctx context.Context, username, password string) (*Session, error)
	ChangePassword(ctx context.Context, id, currentPassword, newPassword string) error
	DeleteAccount(ctx context.Context, id, password string) error
	Lookup(ctx context.Context, id string) (*domain.User, error)
	Verify(token string) (*auth.Claims, error)
}

type authService struct {
	users               repository.UserRepository
	tokens              *auth.TokenIssuer
	allowSelfServeAdmin bool
	logger              *logrus.Logger
}

func NewAuthService(users repository.UserRepository, tokens *auth.TokenIssuer, allowSelfServeAdmin bool, logger *logrus.Logger) AuthService {
	return &authService{
		users:               users,
		tokens:              tokens,
		allowSelfServeAdmin: allowSelfServeAdmin,
		logger:              logger,
	}
}

func (s *authService) Register(ctx context.Context, username, password string, wantAdmin bool) (*Session, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fmt.Errorf("%w: username is required", domain.ErrValidation)
	}
	if password == "" {
		return nil, fmt.Errorf("%w: password is required", domain.ErrValidation)
	}

	role := domain.RoleUser
	if wantAdmin && s.allowSelfServeAdmin {
		role = domain.RoleAdmin
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: string(hash),
		Role:         role,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	token, err := s.tokens.Issue(user.ID, user.Username, user.Role)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{"user_id": user.ID, "role": user.Role}).Info("user registered")
	return s.session(user, token), nil
}

func (s *authService) Login(ctx context.Context, username, password string) (*Session, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, domain.ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.ID, user.Username, user.Role)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{"user_id": user.ID, "role": user.Role}).Info("login successful")
	return s.session(user, token), nil
}

func (s *authService) ChangePassword(ctx context.Context, id, currentPassword, newPassword string) error {
	if newPassword == "" {
		return fmt.Errorf("%w: new password is required", domain.ErrValidation)
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(currentPassword)); err != nil {
		return domain.ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.UpdatePasswordHash(ctx, id, string(hash)); err != nil {
		return err
	}

	s.logger.WithField("user_id", id).Info("password changed")
	return nil
}

func (s *authService) DeleteAccount(ctx context.Context, id, password string) error {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		// An absent account reports the same failure as a wrong password.
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrInvalidCredentials
		}
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return domain.ErrInvalidCredentials
	}

	if err := s.users.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.WithField("user_id", id).Info("account deleted")
	return nil
}

func (s *authService) Lookup(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return sanitizeUser(user), nil
}

func (s *authService) Verify(token string) (*auth.Claims, error) {
	return s.tokens.Verify(token)
}

func (s *authService) session(user *domain.User, token string) *Session {
	return &Session{
		UserID:    user.ID,
		Username:  user.Username,
		Role:      user.Role,
		Token:     token,
		ExpiresIn: int64(s.tokens.TTL().Seconds()),
	}
}

func sanitizeUser(user *domain.User) *domain.User {
	if user == nil {
		return nil
	}
	return &domain.User{
		ID:        user.ID,
		Username:  user.Username,
		Role:      user.Role,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}
