package domain

import "errors"

// Sentinel errors shared across the store, service, and API layers.
// Handlers map these to HTTP statuses; anything unrecognized surfaces
// as a generic internal error.
var (
	ErrAccountNotFound    = errors.New("account not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrInvalidAmount      = errors.New("amount must be positive")
	ErrSameAccount        = errors.New("transfer to self not allowed")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrEmailTaken         = errors.New("email already taken")
	ErrMissingFields      = errors.New("missing required fields")
	ErrInvalidInput       = errors.New("invalid input")
	ErrPasswordMissing    = errors.New("password field missing")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAuthRequired       = errors.New("authorization required")
	ErrInvalidToken       = errors.New("invalid token")
	ErrAccessDenied       = errors.New("access denied")
)
