// Package kverrors implements the error taxonomy from spec.md §7.
package kverrors

import (
	"fmt"

	"github.com/pkg/errors"
)

// Code identifies an error category from spec.md §7.
type Code int

const (
	_ Code = iota
	WrongType
	Syntax
	OutOfRange
	Overflow
	NaN
	NotAFloat
	NotAnInteger
	Timeout
	Internal
)

func (c Code) String() string {
	switch c {
	case WrongType:
		return "WRONGTYPE"
	case Syntax:
		return "ERR syntax"
	case OutOfRange:
		return "ERR out of range"
	case Overflow:
		return "ERR overflow"
	case NaN:
		return "ERR resulting score is not a number (NaN)"
	case NotAFloat:
		return "ERR value is not a valid float"
	case NotAnInteger:
		return "ERR value is not an integer or out of range"
	case Timeout:
		return "ERR timeout"
	case Internal:
		return "ERR internal invariant violation"
	default:
		return "ERR unknown"
	}
}

// Error wraps a Code with the failing operation name and, for Internal
// errors only, a captured stack trace (via github.com/pkg/errors) so a
// panic report can point at the offending invariant check rather than just
// the point of the final `panic` call.
type Error struct {
	Code Code
	Op   string
	err  error
}

func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Code)
	}
	return e.Code.String()
}

func (e *Error) Unwrap() error { return e.err }

// New builds a non-internal error; cheap, no stack capture, matching the
// pack's convention of reserving pkg/errors' stack traces for paths that
// should never actually execute.
func New(code Code, op string) *Error {
	return &Error{Code: code, Op: op}
}

// Newf builds a non-internal error with a formatted message wrapped as the
// cause.
func Newf(code Code, op, format string, args ...any) *Error {
	return &Error{Code: code, Op: op, err: fmt.Errorf(format, args...)}
}

// Is reports whether err is a kverrors.Error of the given code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// InternalError builds an Internal error with a captured stack trace. Per
// spec.md §7, Internal errors are never surfaced to a client as a
// recoverable error — Panic is the only legal response, so this
// constructor is normally passed straight to panic().
func InternalError(op, format string, args ...any) *Error {
	cause := errors.Errorf(format, args...)
	return &Error{Code: Internal, Op: op, err: cause}
}
