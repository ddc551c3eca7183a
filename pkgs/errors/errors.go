package errors

import (
	stderrors "errors"
	"fmt"
)

// Error types for the failures surfaced to the caller. The rewrite engine
// itself never fails; everything here comes from the I/O and configuration
// layers around it.
const (
	// Input/output errors
	ErrInputRead   = "INPUT_READ_ERROR"
	ErrOutputWrite = "OUTPUT_WRITE_ERROR"

	// Configuration errors
	ErrConfigParse   = "CONFIG_PARSE_ERROR"
	ErrConfigInvalid = "CONFIG_INVALID"

	// Symbol map errors
	ErrMapWrite = "MAP_WRITE_ERROR"
	ErrMapRead  = "MAP_READ_ERROR"

	// Watch mode errors
	ErrWatch = "WATCH_ERROR"
)

// PyfogError represents a structured error with type and context
type PyfogError struct {
	Type    string
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface
func (e *PyfogError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap allows error unwrapping
func (e *PyfogError) Unwrap() error {
	return e.Cause
}

// New creates a new PyfogError
func New(errorType, message string) *PyfogError {
	return &PyfogError{
		Type:    errorType,
		Message: message,
		Context: make(map[string]interface{}),
	}
}

// Wrap creates a new PyfogError wrapping an existing error
func Wrap(errorType, message string, cause error) *PyfogError {
	return &PyfogError{
		Type:    errorType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// WithContext adds context information to the error
func (e *PyfogError) WithContext(key string, value interface{}) *PyfogError {
	e.Context[key] = value
	return e
}

// GetContext returns context value by key
func (e *PyfogError) GetContext(key string) (interface{}, bool) {
	value, exists := e.Context[key]
	return value, exists
}

// NewInputError creates an input-related error
func NewInputError(message string, cause error) *PyfogError {
	return Wrap(ErrInputRead, message, cause)
}

// NewOutputError creates an output-related error
func NewOutputError(message string, cause error) *PyfogError {
	return Wrap(ErrOutputWrite, message, cause)
}

// IsErrorType checks if err, or anything it wraps, is a PyfogError of errorType
func IsErrorType(err error, errorType string) bool {
	var pe *PyfogError
	if stderrors.As(err, &pe) {
		return pe.Type == errorType
	}
	return false
}

// IsConfigError reports whether err came from loading or validating configuration
func IsConfigError(err error) bool {
	return IsErrorType(err, ErrConfigParse) || IsErrorType(err, ErrConfigInvalid)
}
