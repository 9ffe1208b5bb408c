// Package errors provides coded errors so callers can react to a failure
// class without matching on message text.
package errors

import (
	"errors"
	"fmt"
)

// Code classifies an error by the subsystem that produced it.
type Code string

const (
	// CodeConfiguration marks invalid or incomplete client configuration.
	CodeConfiguration Code = "configuration"
	// CodeUsage marks an operation invoked with arguments or in a session
	// state that can never succeed.
	CodeUsage Code = "usage"
	// CodeDecode marks a server reply that could not be parsed into the
	// structure the protocol requires.
	CodeDecode Code = "decode"
	// CodeResult marks a well-formed reply whose result code reports failure.
	CodeResult Code = "result"
	// CodeTransport marks a network-level failure before any reply arrived.
	CodeTransport Code = "transport"
)

// Error carries a Code alongside a human-readable message and an optional
// wrapped cause.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New creates a coded error with no underlying cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates a coded error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap annotates err with a code and message while keeping it reachable
// through errors.Unwrap.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, cause: err}
}

// Wrapf is Wrap with a formatted message.
func Wrapf(err error, code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), cause: err}
}

// CodeOf returns the code of the outermost coded error in err's chain, or
// the empty string when err carries no code.
func CodeOf(err error) Code {
	var coded *Error
	if errors.As(err, &coded) {
		return coded.Code
	}
	return ""
}

// HasCode reports whether any error in err's chain carries the given code.
func HasCode(err error, code Code) bool {
	for err != nil {
		var coded *Error
		if !errors.As(err, &coded) {
			return false
		}
		if coded.Code == code {
			return true
		}
		err = coded.cause
	}
	return false
}
