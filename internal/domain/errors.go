package domain

import (
	"errors"
	"fmt"
)

// ErrorCode is the stable, machine-parseable class of an engine error.
type ErrorCode string

const (
	CodeInvalidArgument ErrorCode = "invalid_argument"
	CodeUpstreamFailure ErrorCode = "upstream_failure"
)

// Error carries a code and a message that is safe to return to callers. Err
// holds the underlying cause for logging and is never rendered.
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// InvalidArgument reports a malformed or missing request parameter.
func InvalidArgument(format string, args ...any) error {
	return &Error{Code: CodeInvalidArgument, Message: fmt.Sprintf(format, args...)}
}

// UpstreamFailure reports that the store could not answer op.
func UpstreamFailure(op string, err error) error {
	return &Error{Code: CodeUpstreamFailure, Message: fmt.Sprintf("%s: storage unavailable", op), Err: err}
}

// CodeOf returns the code of err, or an empty code when err is not an *Error.
func CodeOf(err error) ErrorCode {
	var target *Error
	if errors.As(err, &target) {
		return target.Code
	}
	return ""
}

// IsInvalidArgument reports whether err is an InvalidArgument error.
func IsInvalidArgument(err error) bool {
	return CodeOf(err) == CodeInvalidArgument
}

// IsUpstreamFailure reports whether err is an UpstreamFailure error.
func IsUpstreamFailure(err error) bool {
	return CodeOf(err) == CodeUpstreamFailure
}
