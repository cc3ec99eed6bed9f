package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrTypeValidation is a user-correctable input defect
	ErrTypeValidation ErrorType = "VALIDATION"
	// ErrTypeSecurityRejection means the security oracle declined the action
	ErrTypeSecurityRejection ErrorType = "SECURITY_REJECTION"
	// ErrTypeNetwork is a transport or backend failure
	ErrTypeNetwork ErrorType = "NETWORK"
	// ErrTypeDependencyUnavailable means an optional dependency could not be initialized
	ErrTypeDependencyUnavailable ErrorType = "DEPENDENCY_UNAVAILABLE"
	ErrTypeNotFound              ErrorType = "NOT_FOUND"
	ErrTypeUnauthorized          ErrorType = "UNAUTHORIZED"
	ErrTypeCancelled             ErrorType = "CANCELLED"
	ErrTypeConfig                ErrorType = "CONFIG"
)

// AppError represents an application-specific error
type AppError struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap allows errors.Is and errors.As to work with AppError
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// FieldErrors returns per-field validation messages, if any were attached
func (e *AppError) FieldErrors() map[string][]string {
	fields, _ := e.Context["fields"].(map[string][]string)
	return fields
}

// NewAppError creates a new application error
func NewAppError(errType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// TypeOf returns the ErrorType of the first AppError in err's chain, or ""
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ""
}

// IsType reports whether err carries an AppError of type t
func IsType(err error, t ErrorType) bool {
	return TypeOf(err) == t
}

// Helper functions for common error types

// NewAppValidationError creates a validation error with optional per-field messages
func NewAppValidationError(message string, fields map[string][]string) *AppError {
	e := NewAppError(ErrTypeValidation, message, nil)
	if len(fields) > 0 {
		e.WithContext("fields", fields)
	}
	return e
}

// NewSecurityRejection creates an error for an action the security oracle declined
func NewSecurityRejection(message string) *AppError {
	return NewAppError(ErrTypeSecurityRejection, message, nil)
}

// NewNetworkError creates a network-related error
func NewNetworkError(message string, cause error) *AppError {
	return NewAppError(ErrTypeNetwork, message, cause)
}

// NewDependencyUnavailableError creates an error for a dependency that failed to initialize
func NewDependencyUnavailableError(dependency string, cause error) *AppError {
	return NewAppError(ErrTypeDependencyUnavailable, fmt.Sprintf("%s unavailable", dependency), cause).
		WithContext("dependency", dependency)
}

// NewNotFoundError creates a not found error
func NewNotFoundError(resource string) *AppError {
	return NewAppError(ErrTypeNotFound, fmt.Sprintf("%s not found", resource), nil)
}

// NewUnauthorizedError creates an authentication error
func NewUnauthorizedError(message string) *AppError {
	return NewAppError(ErrTypeUnauthorized, message, nil)
}

// NewCancelledError creates an error for an operation abandoned by its caller
func NewCancelledError(cause error) *AppError {
	return NewAppError(ErrTypeCancelled, "request cancelled", cause)
}

// NewConfigError creates a configuration error
func NewConfigError(message string, cause error) *AppError {
	return NewAppError(ErrTypeConfig, message, cause)
}
