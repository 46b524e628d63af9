package core

import (
	"errors"
	"net/http"
)

// AppError is a business error carrying a human-readable message and the
// HTTP-style status the caller should answer with.
type AppError struct {
	Message string
	Status  int
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// WithCause attaches the underlying error so errors.Is keeps working.
func (e *AppError) WithCause(err error) *AppError {
	e.Err = err
	return e
}

func NewAppError(message string, status int) *AppError {
	return &AppError{Message: message, Status: status}
}

// NewValidationError reports a business-rule violation (400).
func NewValidationError(message string) *AppError {
	return NewAppError(message, http.StatusBadRequest)
}

// NewNotFoundError reports a missing transaction or upload (404).
func NewNotFoundError(message string) *AppError {
	return NewAppError(message, http.StatusNotFound)
}

// StatusOf returns the status carried by an AppError in err's chain, or 500.
func StatusOf(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}
	return http.StatusInternalServerError
}
