package apperr

import (
	"errors"
	"net/http"
)

// HTTPError is implemented by every error that knows which HTTP status it maps to.
type HTTPError interface {
	error
	StatusCode() int
}

type (
	// ValidationError reports malformed input or a rejected state transition.
	ValidationError struct {
		Message string
	}

	// NotFoundError reports a lookup with no match.
	NotFoundError struct {
		Message string
	}

	// ServerError wraps an unexpected downstream failure without translating it.
	ServerError struct {
		Message string
		Err     error
	}

	// DatabaseError is a store-layer error passed through as is.
	DatabaseError struct {
		Err error
	}
)

func (e *ValidationError) Error() string { return e.Message }
func (e *NotFoundError) Error() string   { return e.Message }

func (e *ServerError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *DatabaseError) Error() string {
	if e.Err == nil {
		return "database error"
	}
	return "database error: " + e.Err.Error()
}

func (e *ServerError) Unwrap() error   { return e.Err }
func (e *DatabaseError) Unwrap() error { return e.Err }

func (e *ValidationError) StatusCode() int { return http.StatusBadRequest }
func (e *NotFoundError) StatusCode() int   { return http.StatusNotFound }
func (e *ServerError) StatusCode() int     { return http.StatusInternalServerError }
func (e *DatabaseError) StatusCode() int   { return http.StatusInternalServerError }

// Validation returns a *ValidationError carrying msg.
func Validation(msg string) error {
	return &ValidationError{Message: msg}
}

// NotFound returns a *NotFoundError. An empty msg defaults to "Not Found".
func NotFound(msg string) error {
	if msg == "" {
		msg = "Not Found"
	}
	return &NotFoundError{Message: msg}
}

func Server(msg string, err error) error {
	return &ServerError{Message: msg, Err: err}
}

func Database(err error) error {
	return &DatabaseError{Err: err}
}

// IsValidation reports whether any error in err's chain is a *ValidationError.
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// IsNotFound reports whether any error in err's chain is a *NotFoundError.
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// StatusCode resolves the HTTP status for err, defaulting to 500.
func StatusCode(err error) int {
	var httpErr HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode()
	}
	return http.StatusInternalServerError
}
