// Package apperr classifies failures so the HTTP boundary can map them to
// status codes without inspecting error strings.
package apperr

import (
	"errors"
	"net/http"
)

// Class identifies the failure category.
type Class string

const (
	ClassValidation      Class = "validation"
	ClassUnsupportedKind Class = "unsupported_kind"
	ClassNotFound        Class = "not_found"
	ClassGeneration      Class = "generation"
	ClassStore           Class = "store"
	ClassMalformedBody   Class = "malformed_body"
)

// Error is a classified failure. Message is safe to show to clients; Err
// carries the underlying cause for logs only.
type Error struct {
	Class   Class
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Internal reports whether the error is an environment/store failure rather
// than a client mistake.
func (e *Error) Internal() bool {
	return e.Status >= http.StatusInternalServerError
}

func Validation(msg string) *Error {
	return &Error{Class: ClassValidation, Status: http.StatusBadRequest, Message: msg}
}

// TooLarge is a validation failure for content exceeding symbol capacity.
func TooLarge(msg string) *Error {
	return &Error{Class: ClassValidation, Status: http.StatusRequestEntityTooLarge, Message: msg}
}

func UnsupportedKind(msg string) *Error {
	return &Error{Class: ClassUnsupportedKind, Status: http.StatusBadRequest, Message: msg}
}

func NotFound(msg string) *Error {
	return &Error{Class: ClassNotFound, Status: http.StatusNotFound, Message: msg}
}

func Generation(err error) *Error {
	return &Error{Class: ClassGeneration, Status: http.StatusInternalServerError, Message: "failed to generate qr image", Err: err}
}

func Store(err error) *Error {
	return &Error{Class: ClassStore, Status: http.StatusInternalServerError, Message: "database error", Err: err}
}

func MalformedBody(err error) *Error {
	return &Error{Class: ClassMalformedBody, Status: http.StatusUnsupportedMediaType, Message: "request body must be valid JSON", Err: err}
}

// As returns the classified error in err's chain, if any.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// Is reports whether err carries the given class.
func Is(err error, class Class) bool {
	e, ok := As(err)
	return ok && e.Class == class
}
