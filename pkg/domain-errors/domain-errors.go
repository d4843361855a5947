package domainerrors

import "errors"

// Code represents a domain error category independent of transport layer.
// These codes describe what went wrong in business logic terms, not HTTP terms.
type Code string

const (
	CodeNotFound    Code = "not_found"
	CodeBadRequest  Code = "bad_request"
	CodeValidation  Code = "validation_failed"
	CodeConflict    Code = "conflict"
	CodeInternal    Code = "internal_error"
	CodeUnavailable Code = "unavailable"
	CodeUpstream    Code = "upstream_error"
	CodeTimeout     Code = "timeout"
)

// Error wraps domain or infrastructure failures with a stable code.
// Reason carries an optional machine-readable tag that is safe to show to
// end users (e.g. "invalid-email-format").
type Error struct {
	Code    Code
	Reason  string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Reason != "" {
		return e.Reason
	}
	return string(e.Code)
}

// Unwrap implements error unwrapping for error chains.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is enables errors.Is() to match errors by code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates a new domain error with the given code and message.
func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// NewWithReason creates a domain error that also carries a user-facing reason tag.
func NewWithReason(code Code, reason, msg string) error {
	return &Error{Code: code, Reason: reason, Message: msg}
}

// Wrap creates a new domain error wrapping an existing error.
// If the wrapped error is already a domain error, the original code and reason are preserved.
func Wrap(err error, code Code, msg string) error {
	var existing *Error
	if errors.As(err, &existing) {
		return &Error{Code: existing.Code, Reason: existing.Reason, Message: msg, Err: err}
	}
	return &Error{Code: code, Message: msg, Err: err}
}

// HasCode checks if an error is a domain error with the given code.
func HasCode(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// ReasonOf returns the reason tag of the outermost domain error, or "".
func ReasonOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	return ""
}
