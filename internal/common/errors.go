// Package common defines shared constants and sentinel errors used across
// client and server layers of La Bandina. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound         = errors.New("not found")
	ErrLoginAlreadyExists = errors.New("login already exists")
	ErrAlreadyExists      = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorValidation   = errors.New("validation error")

	// Credential errors. Malformed, InvalidSignature and Expired are all
	// reported to callers as a failed authentication but stay distinct here
	// so they can be logged and counted separately.
	ErrTokenMalformed        = errors.New("token malformed")
	ErrTokenInvalidSignature = errors.New("token signature invalid")
	ErrTokenExpired          = errors.New("token expired")
	ErrTokenRevoked          = errors.New("token revoked")

	// ErrUnauthenticated means no credential was presented at all.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrForbidden means the identity is known but does not own the resource.
	ErrForbidden = errors.New("forbidden")

	// Token lifecycle errors.
	ErrRefreshTokenExpired = errors.New("refresh token expired")
)

// IsAuthFailure reports whether err is one of the token rejection kinds that
// the boundary collapses into a single "authentication failed" response.
func IsAuthFailure(err error) bool {
	return errors.Is(err, ErrTokenMalformed) ||
		errors.Is(err, ErrTokenInvalidSignature) ||
		errors.Is(err, ErrTokenExpired) ||
		errors.Is(err, ErrTokenRevoked)
}
