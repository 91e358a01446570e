package app

import "errors"

var (
	// ErrMissingCredentials indicates an empty email or password.
	ErrMissingCredentials = errors.New("email and password required")
	// ErrInvalidCredentials indicates a registered email with a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnauthorized indicates a missing, invalid or expired session token.
	ErrUnauthorized = errors.New("unauthorized")
)
