// Package service holds the business logic of the blog API: account
// registration and login, the password reset lifecycle, ownership checks
// and the post/category operations they protect. Handlers translate the
// sentinel errors below into HTTP responses.
package service

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks malformed input. Its wrapped message is safe to
	// show to the client.
	ErrValidation = errors.New("validation failed")

	// ErrUnauthenticated is returned when no valid identity accompanies a
	// request that needs one.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrInvalidCredentials covers both an unknown email and a wrong
	// password.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrForbidden means the caller is authenticated but not entitled.
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound means the referenced account or resource does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists is returned when a username, email or category name
	// is already taken.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidOrExpired covers a wrong, expired or already used reset
	// secret.
	ErrInvalidOrExpired = errors.New("invalid or expired token")

	// ErrTransient wraps store and mail failures that are safe to retry.
	ErrTransient = errors.New("temporarily unavailable")
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func transient(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrTransient, err)
}
