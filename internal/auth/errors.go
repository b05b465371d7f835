package auth

import "errors"

var (
	// ErrHashing indicates a credential subsystem malfunction, not a
	// password mismatch. Treated as fatal by callers.
	ErrHashing = errors.New("password hashing failure")

	// ErrTokenExpired is returned when a token's exp claim has passed.
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenInvalid covers bad signatures, malformed tokens, wrong
	// signing algorithms, and missing required claims.
	ErrTokenInvalid = errors.New("token invalid")

	// ErrMissingCredentials is returned when no bearer token is presented.
	ErrMissingCredentials = errors.New("missing credentials")

	// ErrUnauthenticated is returned when a token validates but the
	// referenced user no longer exists.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrInvalidResetToken covers both unknown and expired reset tokens;
	// callers must not be able to tell the two apart.
	ErrInvalidResetToken = errors.New("invalid or expired reset token")
)
