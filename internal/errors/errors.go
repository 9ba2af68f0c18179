package errors

import "fmt"

// Kind classifies an error into one of the failure families the API exposes.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindUnauthenticated
	KindForbidden
	KindNotFound
	KindConflict
)

// Error is the service-level error type. Every rejection carries a
// human-readable message and a machine-readable code so clients can tell
// retryable conditions (re-authenticate) from terminal ones (fix input).
type Error struct {
	Kind    Kind
	Code    string
	Message string
	err     error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.err }

// Validation creates an error for malformed, missing or out-of-range input.
func Validation(code, msg string) *Error {
	return &Error{Kind: KindValidation, Code: code, Message: msg}
}

// Unauthenticated creates an error for a missing, invalid or expired credential.
func Unauthenticated(code, msg string) *Error {
	return &Error{Kind: KindUnauthenticated, Code: code, Message: msg}
}

// Forbidden creates an error for an authenticated caller lacking access.
func Forbidden(code, msg string) *Error {
	return &Error{Kind: KindForbidden, Code: code, Message: msg}
}

// NotFound creates an error for an absent referenced entity.
func NotFound(code, msg string) *Error {
	return &Error{Kind: KindNotFound, Code: code, Message: msg}
}

// Conflict creates an "already exists" error.
func Conflict(code, msg string) *Error {
	return &Error{Kind: KindConflict, Code: code, Message: msg}
}

// Internal wraps an unexpected failure. The wrapped error is logged server-side
// and never leaks to the caller.
func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Code: "internal", Message: "internal server error", err: err}
}
