package store

import (
	"fmt"
	"net/http"
)

// Error is a domain error with an HTTP status code.
type Error struct {
	Code    int    // HTTP status code
	Message string // User-facing message
	Err     error  // Underlying error (optional)
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// HTTPCode returns the HTTP status code associated with this error.
func (e *Error) HTTPCode() int { return e.Code }

// WithCause wraps an underlying error.
func (e *Error) WithCause(err error) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Err:     err,
	}
}

// Validation builds a 400 error carrying the failing field's message
// verbatim.
func Validation(message string) *Error {
	return &Error{
		Code:    http.StatusBadRequest,
		Message: message,
	}
}

// Sentinel errors. Cross-owner access reports the same ErrNoteNotFound as
// genuine nonexistence so an outsider can never confirm a note exists.
var (
	ErrNoteNotFound = &Error{
		Code:    http.StatusNotFound,
		Message: "Note not found",
	}

	ErrUserNotFound = &Error{
		Code:    http.StatusNotFound,
		Message: "User not found",
	}

	ErrEmailTaken = &Error{
		Code:    http.StatusConflict,
		Message: "Email already registered",
	}
)
