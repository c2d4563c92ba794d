// Package apperror defines the closed set of errors the authentication flows
// can return. Each constructor wraps one sentinel, so callers classify an error
// with errors.Is and read the client-facing text from (*AppError).Message.
//
// The HTTP status for each sentinel is decided in internal/handler, never here.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrValidation            = errors.New("validation error")
	ErrNotFound              = errors.New("not found")
	ErrConflict              = errors.New("conflict")
	ErrCredentialMismatch    = errors.New("credential mismatch")
	ErrFederatedVerification = errors.New("federated verification failed")
	ErrInternal              = errors.New("internal error")
)

type AppError struct {
	Err     error  // sentinel this error belongs to
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
	cause   error  // underlying fault, kept for logs
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Cause returns the infrastructure error behind an internal or federated
// failure, or nil.
func (e *AppError) Cause() error {
	return e.cause
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

func NotFound(resource, message string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: message,
		Field:   resource,
	}
}

// Conflict reports a unique-constraint violation on field.
func Conflict(field, value string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s %q already exists", field, value),
		Field:   field,
	}
}

func CredentialMismatch(message string) *AppError {
	return &AppError{
		Err:     ErrCredentialMismatch,
		Message: message,
	}
}

// FederatedVerification hides cause behind message. Only the message reaches
// the client.
func FederatedVerification(message string, cause error) *AppError {
	return &AppError{
		Err:     ErrFederatedVerification,
		Message: message,
		cause:   cause,
	}
}

// Internal passes the underlying fault's text through as the message.
func Internal(cause error) *AppError {
	msg := "internal error"
	if cause != nil {
		msg = cause.Error()
	}
	return &AppError{
		Err:     ErrInternal,
		Message: msg,
		cause:   cause,
	}
}

// WithMessage returns a copy of e carrying a different client message.
func (e *AppError) WithMessage(message string) *AppError {
	cp := *e
	cp.Message = message
	return &cp
}
