package secore

import "fmt"

// Error codes as constants. Callers branch on these instead of matching
// error strings, so the distinction between "malformed storage" and
// "bad passphrase or tampered data" is stable API.
const (
	// ErrorCodeFormat indicates a malformed encrypted blob.
	ErrorCodeFormat = "format_error"

	// ErrorCodeAuthentication indicates tag verification failed during
	// decryption: wrong passphrase, wrong application identity, or
	// tampered data.
	ErrorCodeAuthentication = "authentication_failure"

	// ErrorCodeInvalidInput indicates input that could not be accepted
	// even after coercion.
	ErrorCodeInvalidInput = "invalid_input"

	// ErrorCodeRateLimited indicates a declined admission. The
	// accompanying Result carries the retry hint.
	ErrorCodeRateLimited = "rate_limited"

	// ErrorCodeSessionExpired indicates the operation was declined
	// because the session is expired or invalidated.
	ErrorCodeSessionExpired = "session_expired"

	// ErrorCodeInternal indicates an internal failure, such as the
	// random source being unavailable.
	ErrorCodeInternal = "internal_error"
)

// SecurityError is an error with a stable code for caller branching.
type SecurityError struct {
	Code        string // one of the ErrorCode constants
	Description string // human-readable description
	Err         error  // wrapped cause, may be nil
}

// Error implements the error interface.
func (e *SecurityError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Description, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// Unwrap returns the wrapped cause.
func (e *SecurityError) Unwrap() error {
	return e.Err
}

// NewSecurityError creates a SecurityError wrapping cause.
func NewSecurityError(code, description string, cause error) *SecurityError {
	return &SecurityError{Code: code, Description: description, Err: cause}
}
