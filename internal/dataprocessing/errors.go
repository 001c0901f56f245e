package dataprocessing

import (
	"errors"
	"fmt"
)

// NormalizeErrorType classifies normalization failures
type NormalizeErrorType string

const (
	ErrorTypeSchema   NormalizeErrorType = "invalid_schema"
	ErrorTypeRowGroup NormalizeErrorType = "invalid_row_group"
)

// NormalizeError is returned when decoded metadata cannot form a report
type NormalizeError struct {
	Type    NormalizeErrorType
	Field   string
	Message string
	Cause   error
}

// Error implements the error interface
func (e *NormalizeError) Error() string {
	if e == nil {
		return "unknown normalize error"
	}
	if e.Field != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Type, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *NormalizeError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// IsNormalizeError reports whether err is or wraps a NormalizeError
func IsNormalizeError(err error) bool {
	var ne *NormalizeError
	return errors.As(err, &ne)
}

func schemaError(field, format string, args ...interface{}) *NormalizeError {
	return &NormalizeError{
		Type:    ErrorTypeSchema,
		Field:   field,
		Message: fmt.Sprintf(format, args...),
	}
}

func rowGroupError(format string, args ...interface{}) *NormalizeError {
	return &NormalizeError{
		Type:    ErrorTypeRowGroup,
		Message: fmt.Sprintf(format, args...),
	}
}
