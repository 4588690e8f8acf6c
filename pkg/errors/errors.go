package errors

import (
	"errors"
	"fmt"
)

// Code is a stable, transport-agnostic error class. Handlers map codes
// to HTTP statuses; services and repositories only ever deal in codes.
type Code string

const (
	CodeUnknown       Code = "unknown"
	CodeInvalid       Code = "invalid"
	CodeNotFound      Code = "not_found"
	CodeConflict      Code = "conflict"
	CodeUnauthorized  Code = "unauthorized"
	CodeForbidden     Code = "forbidden"
	CodeInternal      Code = "internal"
	CodeUnavailable   Code = "unavailable"
	CodeDeadline      Code = "deadline_exceeded"
	CodeAlreadyExists Code = "already_exists"
)

// AppError carries a code, a human-readable message, an optional cause
// and optional structured metadata.
type AppError struct {
	Code    Code
	Message string
	Err     error
	Meta    map[string]any
}

func (e *AppError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the cause for errors.Is/As.
func (e *AppError) Unwrap() error { return e.Err }

// WithMeta attaches a metadata key to the error and returns it.
func (e *AppError) WithMeta(k string, v any) *AppError {
	if e.Meta == nil {
		e.Meta = map[string]any{}
	}
	e.Meta[k] = v
	return e
}

// New builds an AppError with no cause.
func New(code Code, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Wrap attaches a code and message to an existing error. A nil cause
// degenerates to New.
func Wrap(err error, code Code, message string) *AppError {
	if err == nil {
		return New(code, message)
	}
	return &AppError{Code: code, Message: message, Err: err}
}

// CodeOf extracts the code from err, unwrapping as needed.
// Non-AppError chains report CodeUnknown.
func CodeOf(err error) Code {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return CodeUnknown
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code Code) bool {
	return CodeOf(err) == code
}
