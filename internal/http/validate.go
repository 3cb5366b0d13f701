package http

import (
	"fmt"
	"strings"
	"unicode"

	"loan-ledger/internal/domain"
)

const (
	maxUsernameLen = 50
	minPasswordLen = 8
	maxPasswordLen = 30
)

func validateUsername(username string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return fmt.Errorf("%w: username is required", domain.ErrValidation)
	}
	if len(username) > maxUsernameLen {
		return fmt.Errorf("%w: username must be at most %d characters", domain.ErrValidation, maxUsernameLen)
	}
	return nil
}

// validatePassword enforces the acceptability policy: 8-30 characters with at
// least one lowercase letter, one uppercase letter and one digit, no
// whitespace.
func validatePassword(password string) error {
	if len(password) < minPasswordLen {
		return fmt.Errorf("%w: password must be at least %d characters", domain.ErrValidation, minPasswordLen)
	}
	if len(password) > maxPasswordLen {
		return fmt.Errorf("%w: password must be at most %d characters", domain.ErrValidation, maxPasswordLen)
	}

	var lower, upper, digit bool
	for _, r := range password {
		switch {
		case unicode.IsSpace(r):
			return fmt.Errorf("%w: password must not contain whitespace", domain.ErrValidation)
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !lower || !upper || !digit {
		return fmt.Errorf("%w: password must include at least one uppercase letter, one lowercase letter and one digit", domain.ErrValidation)
	}
	return nil
}
