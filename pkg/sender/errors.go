package sender

import (
	"errors"
	"fmt"
)

// ErrorCode allows us to encapsulate specific failure codes for the sender
// process.
type ErrorCode int

// Error codes for startup failures. Everything that goes wrong once the
// workers are running is retried by the workers themselves and never surfaces
// here.
const (
	NoError ErrorCode = iota
	ErrInvalidConfig
	ErrFailedToReadTokensFile
	ErrNoEndpoints
	ErrInvalidPayload
	ErrMetricsServerFailed
)

// Process exit codes.
const (
	ExitOK          = 0
	ExitFailure     = 1
	ExitConfigError = 2
)

// Error is a way of wrapping the meaningful exit code we want to provide on
// failure.
type Error struct {
	Code     ErrorCode
	Message  string
	Upstream error
}

var _ error = (*Error)(nil)

// NewError allows us to create new Error structures from the given code and
// upstream error (can be nil).
func NewError(code ErrorCode, upstream error, additionalInfo ...string) *Error {
	return &Error{
		Code:     code,
		Message:  ErrorMessageForCode(code, additionalInfo...),
		Upstream: upstream,
	}
}

// Error implements error.
func (e *Error) Error() string {
	if e.Upstream != nil {
		return fmt.Sprintf("%s. Caused by: %s", e.Message, e.Upstream.Error())
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Upstream
}

// ExitCode maps the error onto the process exit code it should produce.
func (e *Error) ExitCode() int {
	switch e.Code {
	case NoError:
		return ExitOK
	case ErrInvalidConfig, ErrFailedToReadTokensFile, ErrNoEndpoints, ErrInvalidPayload:
		return ExitConfigError
	default:
		return ExitFailure
	}
}

// ErrorMessageForCode translates the given error code into a human-readable,
// English message.
func ErrorMessageForCode(code ErrorCode, additionalInfo ...string) string {
	var result string
	switch code {
	case NoError:
		result = "No error"
	case ErrInvalidConfig:
		result = "Invalid configuration"
	case ErrFailedToReadTokensFile:
		result = "Failed to read tokens file"
	case ErrNoEndpoints:
		result = "Tokens file is empty"
	case ErrInvalidPayload:
		result = "Message must be valid JSON"
	case ErrMetricsServerFailed:
		result = "Metrics server failed"
	default:
		return "Unrecognized error"
	}
	if len(additionalInfo) > 0 {
		result = fmt.Sprintf("%s: %s", result, additionalInfo[0])
	}
	return result
}

// IsErrorCode checks whether the given error (or anything it wraps) is an
// Error with the given code.
func IsErrorCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// ExitCodeFor returns the process exit code for the given error. A nil error
// exits cleanly; errors that are not an *Error are generic failures.
func ExitCodeFor(err error) int {
	if err == nil {
		return ExitOK
	}
	var e *Error
	if errors.As(err, &e) {
		return e.ExitCode()
	}
	return ExitFailure
}
