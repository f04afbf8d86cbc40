package errors

import (
	"errors"
	"fmt"
)

// Failure kinds surfaced by the SDK. Callers branch on these with errors.Is
// to choose messaging; wire-level detail travels in the same chain as a
// transport.APIError.
var (
	// Authentication errors
	ErrCredentialRejected = errors.New("credential rejected")
	ErrRefreshRejected    = errors.New("refresh credential rejected")

	// Request errors
	ErrValidation = errors.New("validation failure")
	ErrNetwork    = errors.New("network failure")

	// Credential store errors
	ErrStorage  = errors.New("credential storage failure")
	ErrNotFound = errors.New("not found")

	// Session errors
	ErrNotAuthenticated = errors.New("no authenticated session")
	ErrAlreadyRestored  = errors.New("session already restored")
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
