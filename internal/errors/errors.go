// Copyright Ricardo Oliveira 2025.
// SPDX-License-Identifier: MPL-2.0

// Package errors provides standardized error types and handling for the application
package errors

import (
	"errors"
	"fmt"
)

// Standard error types that can be used across the application
var (
	ErrNotFound        = errors.New("resource not found")
	ErrAlreadyExists   = errors.New("resource already exists")
	ErrInvalidInput    = errors.New("invalid input")
	ErrOperationFailed = errors.New("operation failed")
	ErrInvalidState    = errors.New("invalid state for operation")
)

// ErrorCode represents specific error codes for better error handling
type ErrorCode string

// Standard error codes
const (
	CodeNotFound        ErrorCode = "not_found"
	CodeAlreadyExists   ErrorCode = "already_exists"
	CodeInvalidInput    ErrorCode = "invalid_input"
	CodeOperationFailed ErrorCode = "operation_failed"
	CodeInvalidState    ErrorCode = "invalid_state"
	CodeNotTracked      ErrorCode = "not_tracked"
	CodeStoreError      ErrorCode = "store_error"
	CodeWatchError      ErrorCode = "watch_error"
	CodeConflict        ErrorCode = "conflict"
)

// AppError represents an application-specific error with context
type AppError struct {
	Code    ErrorCode
	Message string
	Err     error
	Context map[string]interface{}
}

// Error implements the error interface for AppError
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap implements the unwrap interface to support errors.Is and errors.As
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithContext adds context information to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// New creates a new AppError with the given code and message
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error in an AppError
func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// NotTracked creates an error for operations on paths the engine is not tracking
func NotTracked(path string) *AppError {
	return &AppError{
		Code:    CodeNotTracked,
		Message: fmt.Sprintf("path '%s' is not tracked", path),
		Err:     ErrNotFound,
		Context: map[string]interface{}{
			"path": path,
		},
	}
}

// InvalidInput creates a new invalid input error
func InvalidInput(details string) *AppError {
	return &AppError{
		Code:    CodeInvalidInput,
		Message: fmt.Sprintf("Invalid input: %s", details),
		Err:     ErrInvalidInput,
	}
}

// StoreError wraps a backing-store failure
func StoreError(operation string, err error) *AppError {
	return &AppError{
		Code:    CodeStoreError,
		Message: fmt.Sprintf("Store operation '%s' failed", operation),
		Err:     err,
		Context: map[string]interface{}{
			"operation": operation,
		},
	}
}

// IsNotTracked checks if the error reports an untracked path
func IsNotTracked(err error) bool {
	return Is(err, CodeNotTracked)
}

// IsNotFound checks if the error is a not found error
func IsNotFound(err error) bool {
	return Is(err, CodeNotFound) || errors.Is(err, ErrNotFound)
}

// Is checks if the error is of the specified code
func Is(err error, code ErrorCode) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}
