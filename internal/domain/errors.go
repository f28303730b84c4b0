package domain

import (
	"errors"
	"fmt"
)

// ErrorKind is a coarse-grained categorization for domain errors
type ErrorKind string

const (
	// KindValidation marks malformed input: same-station endpoints,
	// non-positive distances, duplicate or branching sections.
	KindValidation ErrorKind = "validation"
	// KindNotFound marks a station, line or section that does not exist.
	KindNotFound ErrorKind = "not_found"
	// KindInvariant marks a section set that failed a path-shape check.
	// It signals a bug or corrupt storage and is never patched silently.
	KindInvariant ErrorKind = "invariant"
	// KindConflict marks a stale section set rejected by the store.
	KindConflict ErrorKind = "conflict"
)

// Error wraps a domain failure with the operation that detected it
type Error struct {
	Op   string
	Kind ErrorKind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}

	base := fmt.Sprintf("%s: %s", e.Op, e.Kind)
	if e.Msg != "" {
		base += ": " + e.Msg
	}
	if e.Err != nil {
		base += fmt.Sprintf(": %v", e.Err)
	}
	return base
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// IsKind reports whether err carries a domain error of the given kind
func IsKind(err error, kind ErrorKind) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind == kind
	}
	return false
}

// KindOf returns the kind of the outermost domain error, or "" if none
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

// Message returns the human-readable description of a domain error
func Message(err error) string {
	var de *Error
	if errors.As(err, &de) && de.Msg != "" {
		return de.Msg
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

func validationError(op, format string, args ...any) error {
	return &Error{Op: op, Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

func notFoundError(op, format string, args ...any) error {
	return &Error{Op: op, Kind: KindNotFound, Msg: fmt.Sprintf(format, args...)}
}

func invariantError(op, format string, args ...any) error {
	return &Error{Op: op, Kind: KindInvariant, Msg: fmt.Sprintf(format, args...)}
}

// NewValidationError builds a validation error for callers outside the package
func NewValidationError(op, msg string) error {
	return &Error{Op: op, Kind: KindValidation, Msg: msg}
}

// NewNotFoundError builds a not-found error for callers outside the package
func NewNotFoundError(op, msg string) error {
	return &Error{Op: op, Kind: KindNotFound, Msg: msg}
}

// NewConflictError builds a conflict error for stores rejecting a stale write
func NewConflictError(op, msg string) error {
	return &Error{Op: op, Kind: KindConflict, Msg: msg}
}
