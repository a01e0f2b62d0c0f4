package domain

import "errors"

// Error taxonomy surfaced to callers. The HTTP layer maps these to status
// codes; services wrap them with context via fmt.Errorf and %w.
var (
	ErrNotFound          = errors.New("not found")
	ErrDuplicateUsername = errors.New("username already exists")
	ErrDuplicateEmail    = errors.New("email already exists")
	ErrEmailBanned       = errors.New("email is not allowed to register")
	ErrAlreadyBanned     = errors.New("email is already banned")
	ErrNotBanned         = errors.New("email is not banned")
	ErrCannotBanAdmin    = errors.New("cannot ban an admin user")
	ErrForbidden         = errors.New("forbidden")
	ErrTokenInvalid      = errors.New("token invalid or expired")
	ErrValidation        = errors.New("validation failed")
)
