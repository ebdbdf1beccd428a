// Package errors provides application-level error types and utilities.
// It classifies failures the way the client surfaces them: validation
// problems, missing resources, transient network faults, and structured
// rejections returned by the manager API.
package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation_error"
	ErrorTypeNotFound   ErrorType = "not_found"
	ErrorTypeTransient  ErrorType = "transient"
	ErrorTypeAPI        ErrorType = "api_error"
	ErrorTypeInternal   ErrorType = "internal_error"
)

// AppError represents an application error with additional context
type AppError struct {
	Type    ErrorType `json:"type"`
	Message string    `json:"message"`
	Status  int       `json:"status,omitempty"`
	Details string    `json:"details,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Type, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// NewValidationError creates a new validation error
func NewValidationError(message string, details ...string) *AppError {
	return &AppError{
		Type:    ErrorTypeValidation,
		Message: message,
		Details: first(details),
	}
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string, details ...string) *AppError {
	return &AppError{
		Type:    ErrorTypeNotFound,
		Message: message,
		Status:  404,
		Details: first(details),
	}
}

// NewTransientError creates an error for network faults and 5xx responses.
// Transient errors leave caches and lists in their last-known-good state and
// are safe to retry by re-invoking the same action.
func NewTransientError(message string, details ...string) *AppError {
	return &AppError{
		Type:    ErrorTypeTransient,
		Message: message,
		Details: first(details),
	}
}

// NewAPIError creates an error carrying a structured rejection from the
// server. The message is surfaced to the user verbatim.
func NewAPIError(status int, message string) *AppError {
	return &AppError{
		Type:    ErrorTypeAPI,
		Message: message,
		Status:  status,
	}
}

// NewInternalError creates a new internal error
func NewInternalError(message string, details ...string) *AppError {
	return &AppError{
		Type:    ErrorTypeInternal,
		Message: message,
		Details: first(details),
	}
}

func first(details []string) string {
	if len(details) > 0 {
		return details[0]
	}
	return ""
}

// GetAppError extracts AppError from error
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

// IsAppError checks if the error is an AppError
func IsAppError(err error) bool {
	return GetAppError(err) != nil
}

// IsNotFoundError checks if the error is a not found error
func IsNotFoundError(err error) bool {
	appErr := GetAppError(err)
	return appErr != nil && appErr.Type == ErrorTypeNotFound
}

// IsValidationError checks if the error is a validation error
func IsValidationError(err error) bool {
	appErr := GetAppError(err)
	return appErr != nil && appErr.Type == ErrorTypeValidation
}

// IsTransientError checks if the error is retryable
func IsTransientError(err error) bool {
	appErr := GetAppError(err)
	return appErr != nil && appErr.Type == ErrorTypeTransient
}

// IsAPIError checks if the error carries a structured server rejection
func IsAPIError(err error) bool {
	appErr := GetAppError(err)
	return appErr != nil && appErr.Type == ErrorTypeAPI
}

// UserMessage returns the message to surface in a notification. Structured
// server rejections are shown verbatim; anything else falls back to the
// error string.
func UserMessage(err error) string {
	if appErr := GetAppError(err); appErr != nil {
		return appErr.Message
	}
	if err != nil {
		return err.Error()
	}
	return ""
}
