// Package apperror defines the code-discriminated error taxonomy shared by
// the emergency escalation pipeline. Services return *Error values internally;
// HTTP handlers convert them into the structured result envelope so that no
// raw error ever crosses the public boundary.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies a failure class. Codes, not Go error types, are the
// contract with callers.
type Code string

const (
	CodeAuthenticationFailed    Code = "AUTHENTICATION_FAILED"
	CodeInvalidPatientID        Code = "INVALID_PATIENT_ID"
	CodeMissingEmergencyContact Code = "MISSING_EMERGENCY_CONTACT"
	CodeRateLimitExceeded       Code = "RATE_LIMIT_EXCEEDED"
	CodeValidationError         Code = "VALIDATION_ERROR"
	CodeDatabaseError           Code = "DATABASE_ERROR"
)

// Error carries a failure code, a human-readable message, and an optional
// wrapped cause. The cause is for logs only and is never serialized.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New creates an Error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates an Error with a formatted message.
func Newf(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a cause to a new Error.
func Wrap(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// CodeOf extracts the failure code from an error chain. Anything that is not
// an *Error is treated as an unexpected internal failure and reported as
// DATABASE_ERROR.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeDatabaseError
}

// MessageOf extracts the user-facing message from an error chain. Unexpected
// errors get a generic message so internals do not leak to callers.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "an unexpected error occurred"
}

// HTTPStatus maps a failure code to the HTTP status handlers respond with.
func HTTPStatus(code Code) int {
	switch code {
	case CodeAuthenticationFailed:
		return http.StatusForbidden
	case CodeInvalidPatientID:
		return http.StatusNotFound
	case CodeMissingEmergencyContact:
		return http.StatusPreconditionFailed
	case CodeRateLimitExceeded:
		return http.StatusTooManyRequests
	case CodeValidationError:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Envelope is the structured result shape every public operation responds
// with on failure.
type Envelope struct {
	Success bool   `json:"success"`
	Error   Code   `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// Failure builds the failure envelope for an error chain.
func Failure(err error) Envelope {
	return Envelope{Success: false, Error: CodeOf(err), Message: MessageOf(err)}
}
