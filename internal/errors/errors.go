// Package errors provides coded errors shared by the loaders, the synthesis
// backends and the artifact writer.
//
// Usage:
//
//	if _, ok := header["Genre"]; !ok {
//	    return nil, errors.Data("missing column %q", "Genre")
//	}
//
//	if errors.Is(err, errors.ErrData) {
//	    // abort the whole run
//	}
package errors

import (
	"errors"
	"fmt"
)

// Re-export standard library functions for convenience.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	Join   = errors.Join
)

// Code classifies a failure.
type Code string

// Error codes.
const (
	CodeData       Code = "DATA"
	CodeValidation Code = "VALIDATION"
	CodeExternal   Code = "EXTERNAL"
	CodeFileSystem Code = "FILESYSTEM"
)

// Error is a coded error with an optional cause.
type Error struct {
	Code    Code
	Message string
	cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether target is an *Error with the same Code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Sentinels for errors.Is checks.
var (
	ErrData       = &Error{Code: CodeData}
	ErrValidation = &Error{Code: CodeValidation}
	ErrExternal   = &Error{Code: CodeExternal}
	ErrFileSystem = &Error{Code: CodeFileSystem}
)

// New creates an error with the given code.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to cause. Returns nil when cause is nil.
func Wrap(cause error, code Code, format string, args ...any) error {
	if cause == nil {
		return nil
	}
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), cause: cause}
}

// Data reports malformed or missing input.
func Data(format string, args ...any) *Error {
	return New(CodeData, format, args...)
}

// Validation reports a bad argument.
func Validation(format string, args ...any) *Error {
	return New(CodeValidation, format, args...)
}

// External wraps a failure of a model, service or external process.
func External(cause error, format string, args ...any) error {
	return Wrap(cause, CodeExternal, format, args...)
}

// FileSystem wraps a directory or file write failure.
func FileSystem(cause error, format string, args ...any) error {
	return Wrap(cause, CodeFileSystem, format, args...)
}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
