package auth

import "loan-ledger/internal/domain"

// Requester is the identity a caller presents, taken from verified token
// claims.
type Requester struct {
	ID       string
	Username string
	Role     domain.Role
}

// CanAccess decides whether a requester may act on a resource owned by
// ownerID: admins always, everyone else only on their own resources.
func CanAccess(requester Requester, ownerID string) bool {
	if requester.Role == domain.RoleAdmin {
		return true
	}
	return requester.ID != "" && requester.ID == ownerID
}
