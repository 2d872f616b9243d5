// Package slideerr defines the error taxonomy used across the slide
// reading pipeline: a small set of kinds that callers can branch on with
// errors.As, alongside the usual wrapped error chains.
package slideerr

import (
	"errors"
	"fmt"
)

// Kind classifies why an operation failed.
type Kind int

const (
	// InvalidArgument covers bad levels, malformed regions, zero capacity.
	InvalidArgument Kind = iota
	// NotFound covers unknown extensions, associated images, metadata keys.
	NotFound
	// OutOfRange covers a tile destination that exceeds output bounds.
	OutOfRange
	// Internal covers short reads, unexpected tile sizes, decode failures.
	Internal
	// Unimplemented covers optional operations a reader does not support.
	Unimplemented
	// IoError covers failures opening or reading the underlying file.
	IoError
)

func (k Kind) String() string {
	switch k {
	case InvalidArgument:
		return "invalid_argument"
	case NotFound:
		return "not_found"
	case OutOfRange:
		return "out_of_range"
	case Internal:
		return "internal"
	case Unimplemented:
		return "unimplemented"
	case IoError:
		return "io_error"
	default:
		return "unknown"
	}
}

// Error wraps an underlying cause with a Kind and a message.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %s: %v", e.Op, e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New constructs an *Error with no wrapped cause.
func New(op string, kind Kind, message string) *Error {
	return &Error{Op: op, Kind: kind, Message: message}
}

// Wrap constructs an *Error around an existing error.
func Wrap(op string, kind Kind, message string, err error) *Error {
	return &Error{Op: op, Kind: kind, Message: message, Err: err}
}

// Is reports whether err is a *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
