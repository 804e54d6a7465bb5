package errors

import (
	"errors"
	"fmt"
)

// Category represents the type of error.
type Category string

const (
	CategoryConfig Category = "config"
	CategoryCLI    Category = "cli"
	CategoryServer Category = "server"
)

// LobbyError is a structured error with a code, explanation and fix hint.
type LobbyError struct {
	// Code is a unique error identifier (e.g., "E101").
	Code string

	// Category is the error type.
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation of the error.
	Detail string

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *LobbyError) Error() string {
	msg := e.Message
	if e.Code != "" {
		msg = fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	if e.Wrapped != nil {
		return msg + ": " + e.Wrapped.Error()
	}
	return msg
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *LobbyError) Unwrap() error {
	return e.Wrapped
}

// WithDetail adds a detailed explanation to the error.
func (e *LobbyError) WithDetail(d string) *LobbyError {
	e.Detail = d
	return e
}

// WithSuggestion adds a fix suggestion to the error.
func (e *LobbyError) WithSuggestion(s string) *LobbyError {
	e.Suggestion = s
	return e
}

// Wrap wraps another error.
func (e *LobbyError) Wrap(err error) *LobbyError {
	e.Wrapped = err
	return e
}

// New creates a LobbyError from a registered error code.
func New(code string) *LobbyError {
	template, ok := registry[code]
	if !ok {
		return &LobbyError{
			Code:    code,
			Message: "Unknown error",
		}
	}
	return &LobbyError{
		Code:     code,
		Category: template.Category,
		Message:  template.Message,
		Detail:   template.Detail,
	}
}

// Newf creates a new LobbyError with a formatted message (no code).
func Newf(category Category, format string, args ...any) *LobbyError {
	return &LobbyError{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// FromError wraps a standard error in a LobbyError. A LobbyError anywhere in
// err's chain is returned as is.
func FromError(err error, code string) *LobbyError {
	if err == nil {
		return nil
	}
	var le *LobbyError
	if errors.As(err, &le) {
		return le
	}
	return New(code).Wrap(err)
}

// HasCode reports whether err carries a LobbyError with the given code.
func HasCode(err error, code string) bool {
	var le *LobbyError
	return errors.As(err, &le) && le.Code == code
}
