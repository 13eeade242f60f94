// Package common defines the error taxonomy shared by the registry's
// repositories, services and transports. Callers should use errors.Is and
// errors.As to match these values.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors.
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")

	// Publish-specific errors. All are also reported as validation errors.
	ErrVersionExists  = errors.New("version already uploaded")
	ErrReservedName   = errors.New("reserved crate name")
	ErrUploadTooLarge = errors.New("upload too large")

	// External collaborator errors.
	ErrIndexUnavailable = errors.New("package index unavailable")
)

// ValidationError is a user-facing failure caused by bad input. It is never
// retried and aborts the surrounding transaction without side effects.
type ValidationError struct {
	Msg string
	// Kind optionally links the failure to a sentinel such as ErrVersionExists.
	Kind error
}

func (e *ValidationError) Error() string { return e.Msg }

func (e *ValidationError) Unwrap() error { return e.Kind }

// Human builds a ValidationError from a format string.
func Human(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// HumanKind builds a ValidationError that also matches kind via errors.Is.
func HumanKind(kind error, format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...), Kind: kind}
}

// Forbidden wraps msg so that it matches ErrorUnauthorized.
func Forbidden(msg string) error {
	return fmt.Errorf("%w: %s", ErrorUnauthorized, msg)
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
