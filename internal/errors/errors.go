package errors

import (
	"errors"
	"fmt"
)

// Error kinds shared by the request pipeline and the dev backend
var (
	// Credential errors
	ErrAuthFailure    = errors.New("credential rejected")
	ErrRenewalFailure = errors.New("credential renewal failed")
	ErrSessionExpired = errors.New("session expired, please log in again")
	ErrAuthRejected   = errors.New("credential rejected after renewal")
	ErrNoSession      = errors.New("no active session")

	// Transport and domain errors, passed through untouched
	ErrNetwork    = errors.New("network error")
	ErrValidation = errors.New("validation error")
	ErrServer     = errors.New("server error")

	// Session state errors
	ErrLoginInProgress   = errors.New("login already in progress")
	ErrAlreadyLoggedIn   = errors.New("already logged in")
	ErrSessionSuperseded = errors.New("session ended while request was in flight")

	// Token errors
	ErrInvalidToken        = errors.New("invalid token")
	ErrTokenExpired        = errors.New("token expired")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrRefreshTokenExpired = errors.New("refresh token expired")

	// Authentication errors
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserBlocked        = errors.New("user is blocked")
	ErrUserExists         = errors.New("user already exists")

	// General errors
	ErrNotFound = errors.New("not found")
	ErrInternal = errors.New("internal error")
)

// HTTPError is a non-2xx response from the backend. It unwraps to the
// error kind its status maps to.
type HTTPError struct {
	StatusCode int
	Body       []byte
	Kind       error
}

func (e *HTTPError) Error() string {
	if len(e.Body) == 0 {
		return fmt.Sprintf("%s: status %d", e.Kind, e.StatusCode)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Kind, e.StatusCode, truncate(e.Body, 256))
}

func (e *HTTPError) Unwrap() error {
	return e.Kind
}

// KindForStatus maps an HTTP status to an error kind. 2xx maps to nil.
func KindForStatus(status int) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == 401:
		return ErrAuthFailure
	case status >= 500:
		return ErrServer
	default:
		return ErrValidation
	}
}

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

// New is errors.New, re-exported so callers need a single errors import
func New(text string) error {
	return errors.New(text)
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

// RenewalError is a failed credential renewal. It unwraps to
// ErrRenewalFailure only, so an auth failure from the refresh endpoint is
// never mistaken for a recoverable one. Cause holds the underlying error.
type RenewalError struct {
	Cause error
}

func (e *RenewalError) Error() string {
	if e.Cause == nil {
		return ErrRenewalFailure.Error()
	}
	return ErrRenewalFailure.Error() + ": " + e.Cause.Error()
}

func (e *RenewalError) Unwrap() error {
	return ErrRenewalFailure
}
