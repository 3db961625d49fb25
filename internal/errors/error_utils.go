package errors

import (
	"fmt"
	"time"
)

// ErrorContext records where an error surfaced.
type ErrorContext struct {
	Operation string                 `json:"operation"`
	Component string                 `json:"component"`
	TraceID   string                 `json:"trace_id,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// EnhancedError wraps an error with component and operation context.
type EnhancedError struct {
	Err     error        `json:"error"`
	Context ErrorContext `json:"context"`
}

func (e *EnhancedError) Error() string {
	return fmt.Sprintf("[%s:%s] %s", e.Context.Component, e.Context.Operation, e.Err.Error())
}

func (e *EnhancedError) Unwrap() error {
	return e.Err
}

// Wrap annotates err with its component and operation. A nil err yields nil.
func Wrap(err error, component, operation string) error {
	if err == nil {
		return nil
	}
	return NewEnhancedError(err, component, operation)
}

// NewEnhancedError wraps a non-nil err so callers can attach a trace ID and
// metadata before returning it.
func NewEnhancedError(err error, component, operation string) *EnhancedError {
	return &EnhancedError{
		Err: err,
		Context: ErrorContext{
			Operation: operation,
			Component: component,
			Timestamp: time.Now().UTC(),
		},
	}
}

// WithTraceID records the trace the error surfaced in.
func (e *EnhancedError) WithTraceID(traceID string) *EnhancedError {
	e.Context.TraceID = traceID
	return e
}

// WithMetadata adds metadata to error
func (e *EnhancedError) WithMetadata(key string, value interface{}) *EnhancedError {
	if e.Context.Metadata == nil {
		e.Context.Metadata = make(map[string]interface{})
	}
	e.Context.Metadata[key] = value
	return e
}
