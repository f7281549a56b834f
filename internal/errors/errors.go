package errors

import (
	"errors"
	"fmt"
)

// Common error types for the session limiter
var (
	// Issuance and lookup errors
	ErrIssuanceFailed = errors.New("session token issuance failed")
	ErrLookupFailed   = errors.New("session token lookup failed")

	// Storage errors
	ErrTokenNotFound  = errors.New("session token not found")
	ErrPolicyNotFound = errors.New("enforcement policy not found")

	// Directory errors
	ErrUserNotFound       = errors.New("user not found")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrUnknownRole        = errors.New("unknown role")
	ErrInvalidCredentials = errors.New("invalid credentials")

	// Administrative errors
	ErrUnauthorizedAdminAction = errors.New("unauthorized admin action")
	ErrInvalidNonce            = errors.New("invalid anti-forgery nonce")

	// General errors
	ErrInvalidRequest = errors.New("invalid request")
	ErrUnsupported    = errors.New("unsupported operation")
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
