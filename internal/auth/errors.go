package auth

import "errors"

// Sentinel errors for auth operations.
//
// The first four are the caller-facing taxonomy. Handlers map them to
// 401, 401, 403 and 400 respectively; everything else is an internal failure.
var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUnauthenticated    = errors.New("authentication required")
	ErrForbidden          = errors.New("insufficient permissions")
	ErrDuplicateIdentity  = errors.New("email or cpf already registered")

	ErrTokenInvalid    = errors.New("invalid token")
	ErrTokenExpired    = errors.New("token has expired")
	ErrAccountNotFound = errors.New("account not found")
	ErrInvalidSecret   = errors.New("password must be between 6 and 50 characters")
	ErrInvalidIdentity = errors.New("invalid registration data")
)
