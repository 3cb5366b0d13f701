package auth

import (
	"testing"

	"loan-ledger/internal/domain"
)

func TestCanAccess(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		requester Requester
		ownerID   string
		want      bool
	}{
		{"owner", Requester{ID: "u1", Role: domain.RoleUser}, "u1", true},
		{"other user", Requester{ID: "u1", Role: domain.RoleUser}, "u2", false},
		{"admin over any resource", Requester{ID: "a1", Role: domain.RoleAdmin}, "u2", true},
		{"admin over unowned resource", Requester{ID: "a1", Role: domain.RoleAdmin}, "", true},
		{"user over unowned resource", Requester{ID: "u1", Role: domain.RoleUser}, "", false},
		{"empty requester", Requester{}, "", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := CanAccess(tc.requester, tc.ownerID); got != tc.want {
				t.Fatalf("CanAccess(%+v, %q) = %v, want %v", tc.requester, tc.ownerID, got, tc.want)
			}
		})
	}
}
