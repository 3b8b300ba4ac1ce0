// Package errors defines the structured error type shared by every stage of a
// collection cycle. Each error carries a code so callers can branch on the
// failure class (revoked vs malformed vs network vs parse) without string
// matching.
package errors

import (
	"errors"
	"strings"
)

// Error codes for categorizing failures.
const (
	// CodeAuth: login or refresh failed (transport or response shape).
	CodeAuth = "AUTH"
	// CodePersist: the token pair could not be written. Soft failure.
	CodePersist = "PERSIST"
	// CodeFetch: the monitors response was malformed.
	CodeFetch = "FETCH"
	// CodeRevoked: the server reported the access token as revoked.
	CodeRevoked = "REVOKED"
	// CodeNetwork: any transport-level failure, timeouts included.
	CodeNetwork = "NETWORK"
	// CodeParse: a response body could not be decoded.
	CodeParse = "PARSE"
	// CodeConfig: invalid configuration.
	CodeConfig = "CONFIG"
)

// Error is a coded error with an optional diagnostic detail (usually the raw
// response body) and an optional cause.
type Error struct {
	Code    string
	Message string
	Detail  string
	Cause   error
}

// New creates an error with the given code and message.
func New(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap wraps err with a code and message.
func Wrap(err error, code, message string) *Error {
	return &Error{Code: code, Message: message, Cause: err}
}

// WithDetail attaches a diagnostic detail and returns the same error.
func (e *Error) WithDetail(detail string) *Error {
	e.Detail = detail
	return e
}

// Error renders "message: cause (detail)" on a single line so it can be
// logged as-is.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	if e.Detail != "" {
		b.WriteString(" (")
		b.WriteString(e.Detail)
		b.WriteString(")")
	}
	return b.String()
}

// Unwrap returns the underlying cause for use with errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// IsCode reports whether any *Error in err's chain carries code.
func IsCode(err error, code string) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Code == code {
			return true
		}
		err = e.Cause
	}
	return false
}

// CodeOf returns the code of the outermost *Error in err's chain, or "" when
// there is none.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
