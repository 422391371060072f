// Package apperr defines the error kinds surfaced by the domain services and
// their mapping onto HTTP status codes.
package apperr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Error kinds. Domain errors wrap exactly one of these so callers can branch
// with errors.Is without knowing the concrete domain sentinel.
var (
	ErrValidation            = errors.New("validation error")
	ErrNotFound              = errors.New("not found")
	ErrInsufficientInventory = errors.New("insufficient inventory")
	ErrConflict              = errors.New("conflict")
)

type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }
func (e *kindError) Unwrap() error { return e.kind }

func newKind(kind error, format string, args ...interface{}) error {
	return &kindError{kind: kind, msg: fmt.Sprintf(format, args...)}
}

// Validation returns an error of kind ErrValidation.
func Validation(format string, args ...interface{}) error {
	return newKind(ErrValidation, format, args...)
}

// NotFound returns an error of kind ErrNotFound.
func NotFound(format string, args ...interface{}) error {
	return newKind(ErrNotFound, format, args...)
}

// InsufficientInventory returns an error of kind ErrInsufficientInventory.
func InsufficientInventory(format string, args ...interface{}) error {
	return newKind(ErrInsufficientInventory, format, args...)
}

// Conflict returns an error of kind ErrConflict.
func Conflict(format string, args ...interface{}) error {
	return newKind(ErrConflict, format, args...)
}

// HTTPStatus maps an error onto the status code a handler should respond with.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInsufficientInventory):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// ToHTTP converts a service error into an echo.HTTPError. Internal errors are
// not echoed back to the client.
func ToHTTP(err error) *echo.HTTPError {
	status := HTTPStatus(err)
	if status == http.StatusInternalServerError {
		return echo.NewHTTPError(status, "internal server error").SetInternal(err)
	}
	return echo.NewHTTPError(status, err.Error())
}
