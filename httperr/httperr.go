// Package httperr carries typed HTTP errors from handlers to a single
// terminal renderer, so redirects and flashes stay in the middleware layer
// and everything else funnels through one error page.
package httperr

import (
	"errors"
	"net/http"
)

type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func New(status int, message string) *Error {
	return &Error{Status: status, Message: message}
}

func NotFound(message string) *Error {
	return New(http.StatusNotFound, message)
}

func BadRequest(message string) *Error {
	return New(http.StatusBadRequest, message)
}

// From extracts a typed *Error, or wraps err as a 500 whose detail is never
// shown to the client.
func From(err error) (*Error, bool) {
	var he *Error
	if errors.As(err, &he) {
		return he, true
	}
	return New(http.StatusInternalServerError, "Something went wrong"), false
}
