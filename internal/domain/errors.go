package domain

import "errors"

// Error kinds surfaced by the core. The transport layer maps these to status
// codes; string content is never used for control flow.
var (
	// ErrValidation indicates malformed or out-of-range input.
	ErrValidation = errors.New("invalid input")
	// ErrConflict is returned when registering an already-taken username.
	ErrConflict = errors.New("username already exists")
	// ErrInvalidCredentials covers both an unknown username and a wrong
	// password so the two cases are indistinguishable to the caller.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrInvalidToken covers malformed, tampered and expired tokens alike.
	ErrInvalidToken = errors.New("invalid token")
	// ErrNotFound indicates the referenced user or loan does not exist.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized indicates an authenticated caller is not entitled to
	// the resource or action.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInsufficientFunds is returned when a repayment exceeds the loan's
	// remaining balance.
	ErrInsufficientFunds = errors.New("repayment exceeds remaining balance")
)
