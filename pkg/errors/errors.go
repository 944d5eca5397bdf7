// Package errors provides structured error types for traitforge.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the CLI, the pipeline and the preview server
//   - Machine-readable error codes for programmatic handling
//   - Distinct process exit codes per failure category
//   - Error wrapping with context preservation
//
// # Error Codes
//
// A run fails with one of a small set of codes:
//   - CONFIG_ERROR: a layer or background source cannot be listed
//   - IO_ERROR: an image cannot be loaded or an output file cannot be written
//   - ENUMERATION_OVERFLOW: more artifacts were requested than combinations exist
//   - INVALID_INPUT: options failed validation
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidInput, "width must be positive, got %d", w)
//	if errors.Is(err, errors.ErrCodeInvalidInput) {
//	    // Handle validation error
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeIO, origErr, "write %s", path)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	ErrCodeConfig              Code = "CONFIG_ERROR"
	ErrCodeIO                  Code = "IO_ERROR"
	ErrCodeEnumerationOverflow Code = "ENUMERATION_OVERFLOW"
	ErrCodeInvalidInput        Code = "INVALID_INPUT"
	ErrCodeNotFound            Code = "NOT_FOUND"
	ErrCodeInternal            Code = "INTERNAL_ERROR"
)

// Process exit codes. Interrupted runs exit with 130 (shell convention for SIGINT).
const (
	ExitFailure     = 1
	ExitConfig      = 2
	ExitIO          = 3
	ExitOverflow    = 4
	ExitInterrupted = 130
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It returns the code of the outermost *Error in the chain.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// ExitCode maps an error to the process exit code reported by the CLI.
// A nil error maps to 0.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	switch GetCode(err) {
	case ErrCodeConfig, ErrCodeInvalidInput:
		return ExitConfig
	case ErrCodeIO:
		return ExitIO
	case ErrCodeEnumerationOverflow:
		return ExitOverflow
	default:
		return ExitFailure
	}
}
