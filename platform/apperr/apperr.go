// Package apperr carries the error kinds services return. httpkit turns the
// kind into a status code, so services never import net/http concerns.
package apperr

import (
	"errors"
	"net/http"
)

type Kind uint8

const (
	KindUnknown Kind = iota
	KindNotFound
	KindValidation
	KindConflict
	KindUnauthorized
	// KindUnavailable marks a dependency that is not configured, such as
	// export storage.
	KindUnavailable
)

var statusByKind = map[Kind]int{
	KindNotFound:     http.StatusNotFound,
	KindValidation:   http.StatusBadRequest,
	KindConflict:     http.StatusConflict,
	KindUnauthorized: http.StatusUnauthorized,
	KindUnavailable:  http.StatusServiceUnavailable,
}

// Error is a client-facing failure. Message is safe to show; Details is
// serialized next to it.
type Error struct {
	Kind    Kind
	Message string
	Op      string
	Details any
}

func (e *Error) Error() string {
	if e.Op == "" {
		return e.Message
	}
	return e.Op + ": " + e.Message
}

// HTTPStatus maps the kind, defaulting to 400.
func (e *Error) HTTPStatus() int {
	if status, ok := statusByKind[e.Kind]; ok {
		return status
	}
	return http.StatusBadRequest
}

// WithOp names the failing operation in Error().
func (e *Error) WithOp(op string) *Error {
	e.Op = op
	return e
}

func (e *Error) WithDetails(details any) *Error {
	e.Details = details
	return e
}

func New(kind Kind, message string) *Error { return &Error{Kind: kind, Message: message} }

func NotFound(message string) *Error     { return New(KindNotFound, message) }
func Validation(message string) *Error   { return New(KindValidation, message) }
func Conflict(message string) *Error     { return New(KindConflict, message) }
func Unauthorized(message string) *Error { return New(KindUnauthorized, message) }
func Unavailable(message string) *Error  { return New(KindUnavailable, message) }

// Is reports whether err wraps an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
