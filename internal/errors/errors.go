// Package errors defines the typed errors used across the pipeline.
// Every failure in a run is wrapped into an AppError carrying a kind,
// a human-readable message, and the originating cause, so the CLI can
// report a single top-level failure with full context attached.
package errors

import (
	"errors"
	"fmt"
)

// Kind classifies an AppError.
type Kind string

const (
	KindMissingFile  Kind = "MISSING_FILE"
	KindParse        Kind = "PARSE"
	KindSchema       Kind = "SCHEMA"
	KindInvalidValue Kind = "INVALID_VALUE"
	KindStorage      Kind = "STORAGE"
	KindConfig       Kind = "CONFIG"
)

// AppError is the application error type. All pipeline stages return
// AppError values so callers can branch on Kind with errors.As.
type AppError struct {
	Kind    Kind
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap allows errors.Is and errors.As to reach the cause.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext attaches a key/value pair to the error and returns it.
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// New creates a new AppError.
func New(kind Kind, message string, cause error) *AppError {
	return &AppError{
		Kind:    kind,
		Message: message,
		Cause:   cause,
	}
}

// IsKind reports whether err is (or wraps) an AppError of the given kind.
func IsKind(err error, kind Kind) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind == kind
	}
	return false
}

// Helper constructors for the common kinds.

// NewMissingFileError reports an input path that does not exist.
func NewMissingFileError(path string, cause error) *AppError {
	return New(KindMissingFile, fmt.Sprintf("input file %s not found", path), cause).
		WithContext("path", path)
}

// NewParseError reports malformed input data.
func NewParseError(message string, cause error) *AppError {
	return New(KindParse, message, cause)
}

// NewSchemaError reports a table whose columns do not match expectations,
// such as a missing join key.
func NewSchemaError(message string) *AppError {
	return New(KindSchema, message, nil)
}

// NewInvalidValueError reports a cell value that violates a column rule.
func NewInvalidValueError(message string) *AppError {
	return New(KindInvalidValue, message, nil)
}

// NewStorageError reports a filesystem failure while writing output.
func NewStorageError(message string, cause error) *AppError {
	return New(KindStorage, message, cause)
}

// NewConfigError reports invalid or unloadable configuration.
func NewConfigError(message string, cause error) *AppError {
	return New(KindConfig, message, cause)
}
