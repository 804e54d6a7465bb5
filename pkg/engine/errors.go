package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrIDMismatch is reported when a session body returns an ID other than the one it was submitted with.
	ErrIDMismatch = errors.New("engine: session returned a different id")

	// ErrNilBody is reported for a job submitted without a body.
	ErrNilBody = errors.New("engine: job has no body")

	// ErrPanic marks a fault caused by a panicking session body.
	ErrPanic = errors.New("engine: session panicked")
)

// FaultError describes a session body that failed, panicked, or broke the
// ID contract. The session's permit and registry entry are released either way.
type FaultError struct {
	SessionID string
	Name      string
	Err       error
	Panic     any
	Stack     []byte
}

// Error returns the error message.
func (e *FaultError) Error() string {
	if e.Panic != nil {
		return fmt.Sprintf("engine: session %s (%s): panic: %v", e.SessionID, e.Name, e.Panic)
	}
	return fmt.Sprintf("engine: session %s (%s): %v", e.SessionID, e.Name, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As.
func (e *FaultError) Unwrap() error {
	return e.Err
}
