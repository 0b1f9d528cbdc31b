package domain

import "errors"

// Error kinds returned by the authentication core. Callers match them with
// errors.Is; dependency failures wrap ErrDependencyUnavailable together with
// the underlying cause.
var (
	// ErrInvalidCredentials covers both an unknown username and a wrong password.
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrAccountDisabled    = errors.New("account is disabled")
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrRoleResolution     = errors.New("role resolution failed")
	ErrUnknownRole        = errors.New("unknown role")
	ErrRolesRequired      = errors.New("at least one role is required")
	ErrPasswordTooLong    = errors.New("password exceeds 72 bytes")

	ErrDependencyUnavailable = errors.New("dependency unavailable")
)
