// Package errors defines the error kinds the HTTP surface reports and the
// status code each maps to.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrTooLarge      = errors.New("request too large")
	ErrCacheDisabled = errors.New("caching is disabled")
	ErrInternal      = errors.New("internal error")
)

var statusByKind = []struct {
	kind   error
	status int
}{
	{ErrInvalidInput, http.StatusBadRequest},
	{ErrTooLarge, http.StatusRequestEntityTooLarge},
	{ErrCacheDisabled, http.StatusServiceUnavailable},
}

// AppError is an error of a known kind with a message fit for clients.
type AppError struct {
	Kind    error
	Message string
}

func (e *AppError) Error() string { return e.Kind.Error() + ": " + e.Message }

func (e *AppError) Unwrap() error { return e.Kind }

func New(kind error, message string) *AppError {
	return &AppError{Kind: kind, Message: message}
}

func Newf(kind error, format string, args ...any) *AppError {
	return &AppError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// HTTPStatusCode maps err by the first kind it wraps. Unknown errors are 500.
func HTTPStatusCode(err error) int {
	for _, s := range statusByKind {
		if errors.Is(err, s.kind) {
			return s.status
		}
	}
	return http.StatusInternalServerError
}

// Message is the text shown to clients. Errors of no known kind are hidden
// behind a generic message.
func Message(err error) string {
	var app *AppError
	if errors.As(err, &app) {
		return app.Message
	}
	if HTTPStatusCode(err) != http.StatusInternalServerError {
		return err.Error()
	}
	return ErrInternal.Error()
}
