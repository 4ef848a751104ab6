// Package apperrors holds the typed errors shared by the store, the photo
// backends and the HTTP boundary.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// FieldError describes a single rejected input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is a domain error that knows its HTTP status.
type Error struct {
	Code    string       `json:"code"`
	Message string       `json:"message"`
	Status  int          `json:"-"`
	Details []FieldError `json:"details,omitempty"`
	Err     error        `json:"-"`
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches on Code so that clones and wrapped copies compare equal to the
// predefined sentinels.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code
}

func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

var (
	ErrValidation      = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrNotFound        = New("NOT_FOUND", http.StatusNotFound, "report not found")
	ErrInvalidFileType = New("INVALID_FILE_TYPE", http.StatusBadRequest, "only image files are allowed")
	ErrFileTooLarge    = New("FILE_TOO_LARGE", http.StatusBadRequest, "file exceeds the size limit")
	ErrPersistence     = New("PERSISTENCE_ERROR", http.StatusInternalServerError, "could not reach the report store")
	ErrRouteNotFound   = New("ROUTE_NOT_FOUND", http.StatusNotFound, "route not found")
	ErrInternal        = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
)

// Validation builds a validation error carrying per-field details.
func Validation(details []FieldError) *Error {
	clone := *ErrValidation
	clone.Details = details
	return &clone
}

// Persistence wraps a storage failure; the cause is kept for logs only.
func Persistence(err error) *Error {
	return Wrap(err, ErrPersistence.Code, ErrPersistence.Status, ErrPersistence.Message)
}

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of err with an optional message override.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}
