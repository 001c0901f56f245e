package operations

import (
	"errors"
	"fmt"

	"pqmeta/pkg/contracts/domain"
)

// ErrorType represents the type of operation error
type ErrorType string

const (
	ErrorTypeInvalidState ErrorType = "invalid_state"
	ErrorTypeNotFound     ErrorType = "not_found"
	ErrorTypeCancellation ErrorType = "cancellation"
	ErrorTypeReport       ErrorType = "report"
)

// OperationError describes a job-level failure. Per-file problems are never
// reported this way; they end up in the BatchResult.
type OperationError struct {
	Type    ErrorType `json:"type"`
	JobID   string    `json:"job_id,omitempty"`
	Message string    `json:"message"`
	Cause   error     `json:"-"`
}

// Error implements the error interface
func (e *OperationError) Error() string {
	if e == nil {
		return "unknown operation error"
	}
	msg := fmt.Sprintf("[%s] %s", e.Type, e.Message)
	if e.JobID != "" {
		msg = fmt.Sprintf("[%s] job %s: %s", e.Type, e.JobID, e.Message)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying error
func (e *OperationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is matches operation errors of the same type
func (e *OperationError) Is(target error) bool {
	t, ok := target.(*OperationError)
	return ok && e != nil && t.Type == e.Type
}

var (
	ErrJobNotFound       = &OperationError{Type: ErrorTypeNotFound, Message: "job not found"}
	ErrInvalidTransition = &OperationError{Type: ErrorTypeInvalidState, Message: "invalid job transition"}
	ErrJobCancelled      = &OperationError{Type: ErrorTypeCancellation, Message: "job cancelled"}
)

func notFound(id string) error {
	return &OperationError{Type: ErrorTypeNotFound, JobID: id, Message: "job not found"}
}

func invalidTransition(id string, from, to domain.JobStatus) error {
	return &OperationError{
		Type:    ErrorTypeInvalidState,
		JobID:   id,
		Message: fmt.Sprintf("cannot move from %s to %s", from, to),
	}
}

func cancelled(id string, cause error) error {
	return &OperationError{Type: ErrorTypeCancellation, JobID: id, Message: "job cancelled", Cause: cause}
}

// IsNotFound reports whether err means a job does not exist
func IsNotFound(err error) bool {
	return errors.Is(err, ErrJobNotFound)
}
