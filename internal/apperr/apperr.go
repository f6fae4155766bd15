// Package apperr defines the error taxonomy surfaced by the service layer.
package apperr

import (
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

// Error is implemented by every error in the taxonomy.
type Error interface {
	error
	HTTPStatus() int
	Code() string
}

// BaseError carries the transport-facing details shared by all kinds.
type BaseError struct {
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	ErrorCode  string `json:"code"`
}

func (e *BaseError) Error() string {
	return e.Message
}

func (e *BaseError) HTTPStatus() int {
	return e.StatusCode
}

func (e *BaseError) Code() string {
	return e.ErrorCode
}

// NotFoundError reports a referenced record that does not exist.
type NotFoundError struct {
	BaseError
	Resource string
	ID       string
}

func NewNotFound(resource, id string) *NotFoundError {
	return &NotFoundError{
		BaseError: BaseError{
			Message:    fmt.Sprintf("%s %s not found", resource, id),
			StatusCode: http.StatusNotFound,
			ErrorCode:  "NOT_FOUND",
		},
		Resource: resource,
		ID:       id,
	}
}

// ValidationError reports a malformed or missing field.
type ValidationError struct {
	BaseError
	Field string
}

func NewValidation(field, message string) *ValidationError {
	return &ValidationError{
		BaseError: BaseError{
			Message:    fmt.Sprintf("%s: %s", field, message),
			StatusCode: http.StatusBadRequest,
			ErrorCode:  "VALIDATION_ERROR",
		},
		Field: field,
	}
}

// PermissionDeniedError reports a role that may not perform an action.
type PermissionDeniedError struct {
	BaseError
	Action string
}

func NewPermissionDenied(action string) *PermissionDeniedError {
	return &PermissionDeniedError{
		BaseError: BaseError{
			Message:    fmt.Sprintf("permission denied: %s", action),
			StatusCode: http.StatusForbidden,
			ErrorCode:  "PERMISSION_DENIED",
		},
		Action: action,
	}
}

// UnauthorizedError reports missing or rejected credentials.
type UnauthorizedError struct {
	BaseError
}

func NewUnauthorized(message string) *UnauthorizedError {
	if message == "" {
		message = "authentication required"
	}
	return &UnauthorizedError{
		BaseError: BaseError{
			Message:    message,
			StatusCode: http.StatusUnauthorized,
			ErrorCode:  "UNAUTHORIZED",
		},
	}
}

// ConflictError reports a uniqueness violation.
type ConflictError struct {
	BaseError
	Resource string
}

func NewConflict(resource string) *ConflictError {
	return &ConflictError{
		BaseError: BaseError{
			Message:    fmt.Sprintf("%s already exists", resource),
			StatusCode: http.StatusConflict,
			ErrorCode:  "CONFLICT",
		},
		Resource: resource,
	}
}

// TooManyRequestsError reports a rate-limited caller.
type TooManyRequestsError struct {
	BaseError
}

func NewTooManyRequests(message string) *TooManyRequestsError {
	return &TooManyRequestsError{
		BaseError: BaseError{
			Message:    message,
			StatusCode: http.StatusTooManyRequests,
			ErrorCode:  "TOO_MANY_REQUESTS",
		},
	}
}

// StorageError wraps a failure of the entity store.
type StorageError struct {
	BaseError
	cause error
}

func NewStorage(cause error) *StorageError {
	return &StorageError{
		BaseError: BaseError{
			Message:    "could not complete action",
			StatusCode: http.StatusInternalServerError,
			ErrorCode:  "STORAGE_ERROR",
		},
		cause: cause,
	}
}

func (e *StorageError) Unwrap() error {
	return e.cause
}

// IsNotFound reports whether err is, or wraps, a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsValidation reports whether err is, or wraps, a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsPermissionDenied reports whether err is, or wraps, a PermissionDeniedError.
func IsPermissionDenied(err error) bool {
	var pe *PermissionDeniedError
	return errors.As(err, &pe)
}

// ToHTTP converts err into a status code and response body. Errors outside
// the taxonomy are reported as a generic internal error.
func ToHTTP(err error) (int, map[string]any) {
	if err == nil {
		return http.StatusOK, nil
	}
	var ae Error
	if errors.As(err, &ae) {
		return ae.HTTPStatus(), map[string]any{
			"error":   ae.Code(),
			"message": ae.Error(),
		}
	}
	return http.StatusInternalServerError, map[string]any{
		"error":   "INTERNAL_ERROR",
		"message": "internal server error",
	}
}
