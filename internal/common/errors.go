// Package common defines shared constants and sentinel errors used across
// the challenge tracker. Callers should use errors.Is to match these values.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorForbidden    = errors.New("forbidden")

	// Validation errors. ValidationError values match ErrorValidation.
	ErrorValidation = errors.New("validation error")
	ErrEmailTaken   = errors.New("email already registered")

	// Day-gate errors.
	ErrWrongDay  = errors.New("only tasks of the current day can be changed")
	ErrProtected = errors.New("fixed tasks cannot be deleted")

	// Request guard errors.
	ErrCSRFMismatch = errors.New("csrf token mismatch")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")

	// Token lifecycle errors.
	ErrTokenExpired        = errors.New("token expired")
	ErrRefreshTokenExpired = errors.New("refresh token expired")
)

// ValidationError reports which input constraint failed.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Is makes errors.Is(err, ErrorValidation) hold for every ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrorValidation
}

// NewValidationError is a shorthand for &ValidationError{Field: field, Reason: reason}.
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
