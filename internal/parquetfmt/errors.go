package parquetfmt

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a FormatError
type ErrorKind string

const (
	KindBadMagic       ErrorKind = "bad_magic"
	KindTruncated      ErrorKind = "truncated"
	KindCorruptFooter  ErrorKind = "corrupt_footer"
	KindFooterTooLarge ErrorKind = "footer_too_large"
)

// FormatError is returned by the locator and the decoder when a file does not
// follow the Parquet layout.
type FormatError struct {
	Kind   ErrorKind
	Detail string
	// Offset is the byte position (file offset for the locator, footer offset
	// for the decoder) where the problem was detected, or -1 when unknown.
	Offset int64
	Err    error
}

// Sentinel values for errors.Is checks
var (
	ErrBadMagic       = &FormatError{Kind: KindBadMagic, Offset: -1}
	ErrTruncated      = &FormatError{Kind: KindTruncated, Offset: -1}
	ErrCorruptFooter  = &FormatError{Kind: KindCorruptFooter, Offset: -1}
	ErrFooterTooLarge = &FormatError{Kind: KindFooterTooLarge, Offset: -1}
)

// Error implements the error interface
func (e *FormatError) Error() string {
	if e == nil {
		return "parquet: unknown format error"
	}
	msg := fmt.Sprintf("parquet: %s", kindText(e.Kind))
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Offset >= 0 {
		msg += fmt.Sprintf(" (offset %d)", e.Offset)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error
func (e *FormatError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is reports whether target is a FormatError of the same kind. Sentinels
// match any error of their kind.
func (e *FormatError) Is(target error) bool {
	t, ok := target.(*FormatError)
	if !ok || e == nil {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the FormatError kind carried by err, or "" when err is not a
// format error.
func KindOf(err error) ErrorKind {
	var fe *FormatError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}

func kindText(k ErrorKind) string {
	switch k {
	case KindBadMagic:
		return "bad magic"
	case KindTruncated:
		return "truncated file"
	case KindCorruptFooter:
		return "corrupt footer"
	case KindFooterTooLarge:
		return "footer too large"
	default:
		return string(k)
	}
}

func newFormatError(kind ErrorKind, offset int64, format string, args ...interface{}) *FormatError {
	return &FormatError{
		Kind:   kind,
		Detail: fmt.Sprintf(format, args...),
		Offset: offset,
	}
}
