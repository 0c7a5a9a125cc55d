// Package apierr holds the single error taxonomy of the API: an
// UnableToProcess condition with a title, a detail message and an HTTP status.
package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// UnableToProcess is raised for every client-visible failure. Status defaults
// to 400 when left zero.
type UnableToProcess struct {
	Title  string
	Detail string
	Status int
}

func (e *UnableToProcess) Error() string {
	return fmt.Sprintf("%s: %s (%d)", e.Title, e.Detail, e.StatusCode())
}

func (e *UnableToProcess) StatusCode() int {
	if e.Status == 0 {
		return http.StatusBadRequest
	}
	return e.Status
}

// ErrorObject is one entry of the {"errors": [...]} envelope.
type ErrorObject struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
	Status int    `json:"status"`
}

// Envelope is the JSON body written for an UnableToProcess.
type Envelope struct {
	Errors []ErrorObject `json:"errors"`
}

func (e *UnableToProcess) Envelope() Envelope {
	return Envelope{Errors: []ErrorObject{{
		Title:  e.Title,
		Detail: e.Detail,
		Status: e.StatusCode(),
	}}}
}

func New(title, detail string, status int) *UnableToProcess {
	return &UnableToProcess{Title: title, Detail: detail, Status: status}
}

func BadRequest(title, format string, args ...any) *UnableToProcess {
	return New(title, fmt.Sprintf(format, args...), http.StatusBadRequest)
}

func NotFound(title, format string, args ...any) *UnableToProcess {
	return New(title, fmt.Sprintf(format, args...), http.StatusNotFound)
}

func Forbidden(title, format string, args ...any) *UnableToProcess {
	return New(title, fmt.Sprintf(format, args...), http.StatusForbidden)
}

func Unauthorized(title, format string, args ...any) *UnableToProcess {
	return New(title, fmt.Sprintf(format, args...), http.StatusUnauthorized)
}

func Conflict(title, format string, args ...any) *UnableToProcess {
	return New(title, fmt.Sprintf(format, args...), http.StatusConflict)
}

// As extracts an UnableToProcess from err's chain.
func As(err error) (*UnableToProcess, bool) {
	var u *UnableToProcess
	if errors.As(err, &u) {
		return u, true
	}
	return nil, false
}

// IsNotFound reports whether err carries a 404.
func IsNotFound(err error) bool {
	u, ok := As(err)
	return ok && u.StatusCode() == http.StatusNotFound
}
