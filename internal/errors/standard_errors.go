// Package errors provides the error kinds surfaced by the normative engine.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode represents semantic error codes for consistent error handling
type ErrorCode string

const (
	// Validation errors
	ErrorCodeValidationError ErrorCode = "VALIDATION_ERROR"
	ErrorCodeRequiredField   ErrorCode = "REQUIRED_FIELD"
	ErrorCodeInvalidValue    ErrorCode = "INVALID_VALUE"

	// Resource errors
	ErrorCodeNotFound ErrorCode = "NOT_FOUND"

	// System errors
	ErrorCodeInternalError ErrorCode = "INTERNAL_ERROR"
)

// StandardError is the single error type returned by engine components.
type StandardError struct {
	ErrorInfo ErrorDetails `json:"error"`
	cause     error
}

// ErrorDetails contains the detailed error information
type ErrorDetails struct {
	Code    ErrorCode   `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	TraceID string      `json:"trace_id,omitempty"`
}

// ValidationDetail provides specific validation error information
type ValidationDetail struct {
	Field  string      `json:"field"`
	Reason string      `json:"reason"`
	Value  interface{} `json:"value,omitempty"`
}

// NotFoundDetail names the missing resource.
type NotFoundDetail struct {
	Kind string `json:"kind"`
	ID   string `json:"id"`
}

// Error implements the Go error interface
func (e *StandardError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.ErrorInfo.Message, e.cause)
	}
	return e.ErrorInfo.Message
}

// Unwrap exposes the underlying cause of an internal error.
func (e *StandardError) Unwrap() error {
	return e.cause
}

// Code returns the semantic error code.
func (e *StandardError) Code() ErrorCode {
	return e.ErrorInfo.Code
}

// NewStandardError creates a new standardized error
func NewStandardError(code ErrorCode, message string, details interface{}) *StandardError {
	return &StandardError{
		ErrorInfo: ErrorDetails{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

// NewNotFoundError reports an unknown id of the given resource kind.
func NewNotFoundError(kind, id string) *StandardError {
	return &StandardError{
		ErrorInfo: ErrorDetails{
			Code:    ErrorCodeNotFound,
			Message: fmt.Sprintf("%s not found: %s", kind, id),
			Details: NotFoundDetail{Kind: kind, ID: id},
		},
	}
}

// NewValidationError creates a validation error with field details
func NewValidationError(field, reason string, value interface{}) *StandardError {
	return &StandardError{
		ErrorInfo: ErrorDetails{
			Code:    ErrorCodeValidationError,
			Message: fmt.Sprintf("Validation failed for field '%s': %s", field, reason),
			Details: ValidationDetail{
				Field:  field,
				Reason: reason,
				Value:  value,
			},
		},
	}
}

// NewRequiredFieldError creates an error for missing required fields
func NewRequiredFieldError(field string) *StandardError {
	return &StandardError{
		ErrorInfo: ErrorDetails{
			Code:    ErrorCodeRequiredField,
			Message: fmt.Sprintf("Required field '%s' is missing", field),
			Details: ValidationDetail{
				Field:  field,
				Reason: "missing_required_field",
			},
		},
	}
}

// NewInvalidValueError reports a field whose value is outside its domain.
func NewInvalidValueError(field string, value interface{}) *StandardError {
	return &StandardError{
		ErrorInfo: ErrorDetails{
			Code:    ErrorCodeInvalidValue,
			Message: fmt.Sprintf("Invalid value for field '%s': %v", field, value),
			Details: ValidationDetail{
				Field:  field,
				Reason: "invalid_value",
				Value:  value,
			},
		},
	}
}

// NewInternalError creates an internal error wrapping the original cause.
func NewInternalError(message string, originalError error) *StandardError {
	return &StandardError{
		ErrorInfo: ErrorDetails{
			Code:    ErrorCodeInternalError,
			Message: message,
		},
		cause: originalError,
	}
}

// WithTraceID adds a trace ID to the error for debugging
func (e *StandardError) WithTraceID(traceID string) *StandardError {
	e.ErrorInfo.TraceID = traceID
	return e
}

// ToHTTPStatus maps StandardError to appropriate HTTP status code
func (e *StandardError) ToHTTPStatus() int {
	switch e.ErrorInfo.Code {
	case ErrorCodeValidationError, ErrorCodeRequiredField, ErrorCodeInvalidValue:
		return http.StatusBadRequest
	case ErrorCodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func codeOf(err error) (ErrorCode, bool) {
	var se *StandardError
	if stderrors.As(err, &se) {
		return se.ErrorInfo.Code, true
	}
	return "", false
}

// IsNotFound reports whether err, or anything it wraps, is a NotFound error.
func IsNotFound(err error) bool {
	code, ok := codeOf(err)
	return ok && code == ErrorCodeNotFound
}

// IsValidation reports whether err is any validation-related error.
func IsValidation(err error) bool {
	code, ok := codeOf(err)
	return ok && (code == ErrorCodeValidationError ||
		code == ErrorCodeRequiredField ||
		code == ErrorCodeInvalidValue)
}

// IsInternal reports whether err is an internal error.
func IsInternal(err error) bool {
	code, ok := codeOf(err)
	return ok && code == ErrorCodeInternalError
}
