package shiprocket

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// AuthError represents a failed authentication with the carrier.
// The lockout variant is raised when the carrier reports too many
// failed login attempts and carries a human-readable wait hint.
type AuthError struct {
	Message  string
	Lockout  bool
	WaitHint string
	Cause    error
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	if e.Lockout {
		return fmt.Sprintf("shiprocket login locked out: %s (%s)", e.Message, e.WaitHint)
	}
	if e.Cause != nil {
		return fmt.Sprintf("shiprocket authentication failed: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("shiprocket authentication failed: %s", e.Message)
}

// Unwrap returns the underlying cause.
func (e *AuthError) Unwrap() error { return e.Cause }

// BackoffError signals that a login was attempted too soon after a
// failure. Callers must not retry before RetryAfter has elapsed.
type BackoffError struct {
	RetryAfter time.Duration
}

func (e *BackoffError) Error() string {
	return fmt.Sprintf("shiprocket login cooling down, retry after %s", e.RetryAfter.Round(time.Second))
}

// APIError is any carrier-reported 4xx/5xx not otherwise classified.
// Body carries the carrier's structured response when one was decoded.
type APIError struct {
	StatusCode int
	Message    string
	Body       map[string]any
}

func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("shiprocket error (HTTP %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("shiprocket error: %s", e.Message)
}

// Is matches APIErrors by status code.
func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	if !ok {
		return false
	}
	return e.StatusCode == t.StatusCode
}

// TransportError wraps network-level failures (dial, TLS, timeout) so they
// stay distinguishable from errors the carrier itself reported.
type TransportError struct {
	Op    string
	Cause error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("shiprocket transport failure during %s: %v", e.Op, e.Cause)
}

func (e *TransportError) Unwrap() error { return e.Cause }

// Sentinel errors.
var (
	// ErrMissingCredentials indicates no carrier credentials are configured.
	ErrMissingCredentials = errors.New("shiprocket credentials not configured")

	// ErrTokenRejected indicates the carrier rejected the current token
	// even after a forced re-authentication.
	ErrTokenRejected = errors.New("carrier rejected token after re-authentication")
)

// lockoutFragment is the stable part of the carrier's anti-abuse message,
// e.g. "Too many failed login attempts. Please try again in 30 minutes."
const lockoutFragment = "too many failed login attempts"

// isLockoutMessage reports whether a carrier message is the login lockout.
func isLockoutMessage(msg string) bool {
	return strings.Contains(strings.ToLower(msg), lockoutFragment)
}

// newLockoutError rewraps the carrier's lockout message as an actionable
// AuthError. The carrier's own text doubles as the wait hint.
func newLockoutError(msg string) *AuthError {
	return &AuthError{
		Message:  msg,
		Lockout:  true,
		WaitHint: "wait for the carrier lockout window to pass before retrying",
	}
}

// IsAuth reports whether err is an authentication failure of any kind.
func IsAuth(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}

// IsLockout reports whether err is the carrier login lockout.
func IsLockout(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae) && ae.Lockout
}

// IsTransport reports whether err is a network-level failure rather than a
// carrier-reported one.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
