package errors

import (
	"errors"
	"fmt"
)

// Common error types for the session client
var (
	// Session errors
	ErrNoValidToken = errors.New("no valid access token")
	ErrUnauthorized = errors.New("unauthorized")

	// Refresh errors
	ErrMaxAttempts    = errors.New("refresh attempts exhausted for this session")
	ErrTooSoon        = errors.New("refresh attempted too soon after the previous attempt")
	ErrRefreshTimeout = errors.New("refresh timed out")
	ErrRefreshFailed  = errors.New("refresh failed")

	// Callback errors
	ErrMalformedCallback = errors.New("malformed oauth callback")

	// Storage errors
	ErrStorage = errors.New("storage failure")

	// General errors
	ErrNotFound        = errors.New("not found")
	ErrUnexpectedReply = errors.New("unexpected response")
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
