// Package apperror defines the application's error taxonomy.
//
// Services return these errors; the HTTP layer translates them into status
// codes with errors.Is/errors.As and never leaks anything else to clients.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation failed")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrTokenExpired = errors.New("token expired")
)

// AppError carries a client-safe message alongside the taxonomy sentinel.
// Details holds per-field validation messages and never anything sensitive.
type AppError struct {
	Err     error             // taxonomy sentinel (ErrNotFound, ErrValidation, ...)
	Message string            // human-readable, safe to return to the client
	Details map[string]string // optional field → message
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(message string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: message,
	}
}

func ValidationFailed(details map[string]string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: "validation failed",
		Details: details,
	}
}

// ValidationField is shorthand for a single-field validation failure.
func ValidationField(field, message string) *AppError {
	return ValidationFailed(map[string]string{field: message})
}

func Conflict(message string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: message,
	}
}

// Unauthorized covers missing/invalid credentials and session tokens.
// The message must not confirm or deny that an account exists.
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}

// TokenExpired indicates a verification or reset token that matched an
// account but is past its validity window.
func TokenExpired(kind string) *AppError {
	return &AppError{
		Err:     ErrTokenExpired,
		Message: fmt.Sprintf("%s token has expired", kind),
	}
}
