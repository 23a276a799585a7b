// Package status defines the error codes used across the StreamExec
// compile/load/execute pipeline, and an error type that carries one.
//
// The code values match tensorflow/core/protobuf/error_codes.proto, so errors
// surfaced by a remote or native runtime can be mapped 1:1.
package status

import (
	"fmt"

	"github.com/pkg/errors"
)

// Code classifies an error surfaced by the pipeline.
type Code int

// Values copied from tensorflow/core/protobuf/error_codes.proto.
const (
	OK                 Code = 0
	Cancelled          Code = 1
	Unknown            Code = 2
	InvalidArgument    Code = 3
	DeadlineExceeded   Code = 4
	NotFound           Code = 5
	AlreadyExists      Code = 6
	PermissionDenied   Code = 7
	ResourceExhausted  Code = 8
	FailedPrecondition Code = 9
	Aborted            Code = 10
	OutOfRange         Code = 11
	Unimplemented      Code = 12
	Internal           Code = 13
	Unavailable        Code = 14
	DataLoss           Code = 15
	Unauthenticated    Code = 16
)

// String returns the proto enum name for the code.
func (c Code) String() string {
	switch c {
	case OK:
		return "OK"
	case Cancelled:
		return "CANCELLED"
	case Unknown:
		return "UNKNOWN"
	case InvalidArgument:
		return "INVALID_ARGUMENT"
	case DeadlineExceeded:
		return "DEADLINE_EXCEEDED"
	case NotFound:
		return "NOT_FOUND"
	case AlreadyExists:
		return "ALREADY_EXISTS"
	case PermissionDenied:
		return "PERMISSION_DENIED"
	case ResourceExhausted:
		return "RESOURCE_EXHAUSTED"
	case FailedPrecondition:
		return "FAILED_PRECONDITION"
	case Aborted:
		return "ABORTED"
	case OutOfRange:
		return "OUT_OF_RANGE"
	case Unimplemented:
		return "UNIMPLEMENTED"
	case Internal:
		return "INTERNAL"
	case Unavailable:
		return "UNAVAILABLE"
	case DataLoss:
		return "DATA_LOSS"
	case Unauthenticated:
		return "UNAUTHENTICATED"
	}
	return fmt.Sprintf("Code(%d)", int(c))
}

// Error is an error tagged with a Code. Use Errorf or WrapErrorf to create
// one, and CodeOf to recover the code from an arbitrary error chain.
type Error struct {
	code  Code
	msg   string
	cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause == nil {
		return fmt.Sprintf("%s: %s", e.code, e.msg)
	}
	return fmt.Sprintf("%s: %s: %v", e.code, e.msg, e.cause)
}

// Code of this error.
func (e *Error) Code() Code { return e.code }

// Unwrap returns the wrapped cause, if any.
func (e *Error) Unwrap() error { return e.cause }

// Errorf creates a new Error with the given code and formatted message.
func Errorf(code Code, format string, args ...any) error {
	return &Error{code: code, msg: fmt.Sprintf(format, args...)}
}

// WrapErrorf wraps cause with a code and a formatted message. It returns nil
// if cause is nil.
func WrapErrorf(cause error, code Code, format string, args ...any) error {
	if cause == nil {
		return nil
	}
	return &Error{code: code, msg: fmt.Sprintf(format, args...), cause: cause}
}

// CodeOf returns the code of the first *Error found in err's chain.
// A nil error maps to OK, and an error with no *Error in its chain to
// Unknown -- opaque errors from lower layers are passed through, not
// reclassified.
func CodeOf(err error) Code {
	if err == nil {
		return OK
	}
	var sErr *Error
	if errors.As(err, &sErr) {
		return sErr.code
	}
	return Unknown
}

// IsUnimplemented reports whether err carries the Unimplemented code.
func IsUnimplemented(err error) bool { return CodeOf(err) == Unimplemented }

// IsInvalidArgument reports whether err carries the InvalidArgument code.
func IsInvalidArgument(err error) bool { return CodeOf(err) == InvalidArgument }

// IsFailedPrecondition reports whether err carries the FailedPrecondition code.
func IsFailedPrecondition(err error) bool { return CodeOf(err) == FailedPrecondition }
