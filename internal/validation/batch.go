package validation

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// DefaultExtension is the only extension accepted when none are configured
const DefaultExtension = ".parquet"

// Kind classifies a batch rejection
type Kind string

const (
	KindEmptyBatch           Kind = "empty_batch"
	KindUnsupportedExtension Kind = "unsupported_extension"
)

// ValidationError rejects a whole batch before any file is processed
type ValidationError struct {
	Kind  Kind
	Files []string // offending file names, in submission order
}

func (e *ValidationError) Error() string {
	switch e.Kind {
	case KindEmptyBatch:
		return "validation: no files submitted"
	case KindUnsupportedExtension:
		return fmt.Sprintf("validation: unsupported file extension: %s", strings.Join(e.Files, ", "))
	default:
		return "validation: " + string(e.Kind)
	}
}

// Is matches validation errors of the same kind
func (e *ValidationError) Is(target error) bool {
	t, ok := target.(*ValidationError)
	return ok && t.Kind == e.Kind
}

var (
	ErrEmptyBatch           = &ValidationError{Kind: KindEmptyBatch}
	ErrUnsupportedExtension = &ValidationError{Kind: KindUnsupportedExtension}
)

// IsValidationError reports whether err is a *ValidationError
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// ValidateBatch checks the submitted names: at least one file, and every
// name ending in an allowed extension (case-insensitive). An empty allowed
// list means DefaultExtension.
func ValidateBatch(names []string, allowed []string) error {
	if len(names) == 0 {
		return ErrEmptyBatch
	}
	if len(allowed) == 0 {
		allowed = []string{DefaultExtension}
	}

	var bad []string
	for _, name := range names {
		if !HasAllowedExtension(name, allowed) {
			bad = append(bad, name)
		}
	}
	if len(bad) > 0 {
		return &ValidationError{Kind: KindUnsupportedExtension, Files: bad}
	}
	return nil
}

// HasAllowedExtension reports whether name ends in one of the extensions
func HasAllowedExtension(name string, allowed []string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return false
	}
	for _, a := range allowed {
		if !strings.HasPrefix(a, ".") {
			a = "." + a
		}
		if ext == strings.ToLower(a) {
			return true
		}
	}
	return false
}
