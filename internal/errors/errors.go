package errors

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by the services and mapped to responses at the HTTP boundary.
var (
	// Authentication errors. Every credential or refresh-token failure collapses into ErrUnauthorized.
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	// Lookup errors
	ErrNotFound     = errors.New("not found")
	ErrRoleNotFound = fmt.Errorf("role %w", ErrNotFound)
	ErrBookNotFound = fmt.Errorf("book %w", ErrNotFound)

	// Rental errors
	ErrLimitExceeded = errors.New("rental limit exceeded")
	ErrConflict      = errors.New("conflict")

	// General errors
	ErrInvalidRequest = errors.New("invalid request")
	ErrInternal       = errors.New("internal error")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
