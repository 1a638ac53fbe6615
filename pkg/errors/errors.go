// Package errors provides structured error types for fsm.
//
// Codes let the CLI and the HTTP API report failures consistently:
//   - INVALID_*: malformed input (packages, manifests, flags)
//   - *_NOT_FOUND: missing resources
//   - MALFORMED_GRAPH / DEPTH_EXCEEDED: traversal failures
//   - NETWORK_ERROR: repository fetch failures
//   - INSTALL_FAILED / INTERNAL_ERROR: execution failures
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidPackage, "package %q has no version", name)
//	if errors.Is(err, errors.ErrCodeInvalidPackage) {
//	    // Handle validation error
//	}
//
//	err := errors.Wrap(errors.ErrCodeNetwork, origErr, "fetch %s", url)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInvalidInput     Code = "INVALID_INPUT"
	ErrCodeInvalidPackage   Code = "INVALID_PACKAGE"
	ErrCodeInvalidManifest  Code = "INVALID_MANIFEST"
	ErrCodeInvalidFormat    Code = "INVALID_FORMAT"
	ErrCodeDuplicatePackage Code = "DUPLICATE_PACKAGE"

	// Resource not found errors
	ErrCodeNotFound        Code = "NOT_FOUND"
	ErrCodePackageNotFound Code = "PACKAGE_NOT_FOUND"

	// Traversal errors
	ErrCodeMalformedGraph Code = "MALFORMED_GRAPH"
	ErrCodeDepthExceeded  Code = "DEPTH_EXCEEDED"

	// Network errors
	ErrCodeNetwork Code = "NETWORK_ERROR"

	// Execution errors
	ErrCodeInstallFailed Code = "INSTALL_FAILED"
	ErrCodeInternal      Code = "INTERNAL_ERROR"
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
// Only the outermost *Error in the chain is consulted.
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
		if e.Cause != nil {
			return fmt.Sprintf("%s: %v", e.Message, e.Cause)
		}
		return e.Message
	}
	return err.Error()
}
