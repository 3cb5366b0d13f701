package http

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"loan-ledger/internal/domain"
)

func TestValidatePassword(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		password string
		ok       bool
	}{
		{"valid", "Passw0rd!", true},
		{"minimum length", "Abcdef12", true},
		{"too short", "Abc12de", false},
		{"too long", strings.Repeat("Aa1", 11), false},
		{"no uppercase", "passw0rd!", false},
		{"no lowercase", "PASSW0RD!", false},
		{"no digit", "Password!", false},
		{"contains space", "Passw0rd !", false},
		{"contains tab", "Passw0rd\t1", false},
		{"empty", "", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := validatePassword(tc.password)
			if tc.ok {
				require.NoError(t, err)
			} else {
				require.ErrorIs(t, err, domain.ErrValidation)
			}
		})
	}
}

func TestValidateUsername(t *testing.T) {
	t.Parallel()

	require.NoError(t, validateUsername("alice"))
	require.ErrorIs(t, validateUsername(""), domain.ErrValidation)
	require.ErrorIs(t, validateUsername("   "), domain.ErrValidation)
	require.ErrorIs(t, validateUsername(strings.Repeat("x", 51)), domain.ErrValidation)
}
