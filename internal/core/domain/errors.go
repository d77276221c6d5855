package domain

import (
	"errors"
	"fmt"
)

var (
	ErrUserNotFound   = errors.New("user not found")
	ErrDuplicateEmail = errors.New("email already registered")
	ErrNoRowReturned  = errors.New("insert returned no row")
)

// NotFoundError is a generic resource or route miss.
type NotFoundError struct {
	Path    string
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }
func (e *NotFoundError) Tag() string   { return "NotFoundError" }

// UserNotFoundError is returned when an id is malformed or has no row.
type UserNotFoundError struct {
	ID      string
	Message string
}

func (e *UserNotFoundError) Error() string { return e.Message }
func (e *UserNotFoundError) Tag() string   { return "UserNotFoundError" }

// Unwrap lets callers match with errors.Is(err, ErrUserNotFound).
func (e *UserNotFoundError) Unwrap() error { return ErrUserNotFound }

// UserCreationError covers every failed insert: constraint violations and
// inserts that report success without returning a row.
type UserCreationError struct {
	Email string
	Name  string
	Err   error
}

func (e *UserCreationError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("create user %q", e.Email)
	}
	return fmt.Sprintf("create user %q: %v", e.Email, e.Err)
}
func (e *UserCreationError) Tag() string   { return "UserCreationError" }
func (e *UserCreationError) Unwrap() error { return e.Err }

// ValidationError reports invalid request data.
type ValidationError struct {
	Message string
	Errors  []string
}

func (e *ValidationError) Error() string { return e.Message }
func (e *ValidationError) Tag() string   { return "ValidationError" }

// BindingsError means no platform bindings were provided for the request.
type BindingsError struct {
	Message string
}

func (e *BindingsError) Error() string { return e.Message }
func (e *BindingsError) Tag() string   { return "CloudflareBindingsError" }

// DatabaseConnectionError means a request-scoped database handle could not
// be acquired.
type DatabaseConnectionError struct {
	Message string
	Err     error
}

func (e *DatabaseConnectionError) Error() string { return e.Message }
func (e *DatabaseConnectionError) Tag() string   { return "DatabaseConnectionError" }
func (e *DatabaseConnectionError) Unwrap() error { return e.Err }

// Tagged is implemented by every typed error above.
type Tagged interface {
	error
	Tag() string
}
