package errx

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	// SystemErrorMessage is a user-facing fallback when internal errors occur.
	SystemErrorMessage = "internal server error"
	// BackendErrorMessage describes model backend failures (unreachable,
	// timeout, unparseable response).
	BackendErrorMessage = "model backend failure"
	// ProviderErrorMessage describes an unreachable tool provider.
	ProviderErrorMessage = "tool provider unavailable"
	// SessionNotFoundMessage is returned by explicit lookups on unknown users.
	SessionNotFoundMessage = "session not found"
	// RedisErrorMessage describes Redis related failures.
	RedisErrorMessage = "redis operation failed"
	// RedisNotFoundMessage describes a missing Redis key.
	RedisNotFoundMessage = "redis key not found"
)

// ErrSessionNotFound is raised only by explicit lookups (status/delete) on an
// unknown user id. Interact never returns it; it creates sessions on demand.
var ErrSessionNotFound = &AppError{Status: http.StatusNotFound, Message: SessionNotFoundMessage}

// AppError wraps an underlying error with an HTTP status and safe message.
type AppError struct {
	Err     error
	Status  int
	Message string
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

// Unwrap exposes the underlying error for errors.Is / errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError with the provided information.
func New(err error, status int, message string) *AppError {
	return &AppError{
		Err:     err,
		Status:  status,
		Message: message,
	}
}

// WrapBackend wraps a model backend error. Backend failures are turn-level
// failures; they are never retried here and never absorbed into the history.
func WrapBackend(err error) *AppError {
	if err == nil {
		return nil
	}
	return New(err, http.StatusBadGateway, BackendErrorMessage)
}

// WrapProvider wraps a tool provider connection/listing failure. Registry
// refresh records these per provider and continues with the others.
func WrapProvider(name string, err error) *AppError {
	if err == nil {
		return nil
	}
	return New(fmt.Errorf("provider %s: %w", name, err), http.StatusServiceUnavailable, ProviderErrorMessage)
}

// Is reports whether the target matches the underlying error or the AppError itself.
func (e *AppError) Is(target error) bool {
	if t, ok := target.(*AppError); ok {
		return e.Status == t.Status && e.Message == t.Message
	}
	return errors.Is(e.Err, target)
}

// As allows casting to AppError or the wrapped error in a chain.
func (e *AppError) As(target any) bool {
	if t, ok := target.(**AppError); ok {
		*t = e
		return true
	}
	if e.Err == nil {
		return false
	}
	return errors.As(e.Err, target)
}
