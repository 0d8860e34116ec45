package assistant

import (
	"errors"
	"fmt"
)

var ErrEmptyMessage = errors.New("message is required")

// ValidationError is a client error raised before any side effect.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string { return e.Err.Error() }
func (e *ValidationError) Unwrap() error { return e.Err }

// ServiceError wraps a failing collaborator (model or store). Callers
// report it as a server error; the assistant never retries.
type ServiceError struct {
	Op  string
	Err error
}

func (e *ServiceError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }
func (e *ServiceError) Unwrap() error { return e.Err }
