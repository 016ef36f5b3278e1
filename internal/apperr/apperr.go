// Package apperr defines the error kinds surfaced by the meeting recorder and
// their HTTP status classes.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"unicode/utf8"
)

// Kind classifies an application error.
type Kind string

const (
	ConfigurationInvalid Kind = "ConfigurationInvalid"
	QuotaExceeded        Kind = "QuotaExceeded"
	UpstreamUnavailable  Kind = "UpstreamUnavailable"
	UpstreamError        Kind = "UpstreamError"
	NoBackendAvailable   Kind = "NoBackendAvailable"
	SummaryUnavailable   Kind = "SummaryUnavailable"
	NotFound             Kind = "NotFound"
	InvalidRequest       Kind = "InvalidRequest"
)

// Error is an application error carrying its kind and HTTP status class.
type Error struct {
	Kind    Kind
	Status  int
	Message string

	// UpstreamStatus is the HTTP status returned by an external service, if any.
	UpstreamStatus int

	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind, so callers can
// write errors.Is(err, &apperr.Error{Kind: apperr.QuotaExceeded}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// defaultStatus maps each kind to its HTTP status class.
var defaultStatus = map[Kind]int{
	ConfigurationInvalid: http.StatusServiceUnavailable,
	QuotaExceeded:        http.StatusTooManyRequests,
	UpstreamUnavailable:  http.StatusBadGateway,
	UpstreamError:        http.StatusBadGateway,
	NoBackendAvailable:   http.StatusServiceUnavailable,
	SummaryUnavailable:   http.StatusBadGateway,
	NotFound:             http.StatusNotFound,
	InvalidRequest:       http.StatusBadRequest,
}

// New creates an error of the given kind with its default status.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{
		Kind:    kind,
		Status:  statusFor(kind),
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates an error of the given kind wrapping cause.
func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	e := New(kind, format, args...)
	e.Err = cause
	return e
}

// WithStatus overrides the HTTP status class.
func (e *Error) WithStatus(status int) *Error {
	e.Status = status
	return e
}

// Upstream records the status returned by an external service.
func Upstream(kind Kind, upstreamStatus int, format string, args ...any) *Error {
	e := New(kind, format, args...)
	e.UpstreamStatus = upstreamStatus
	return e
}

func statusFor(kind Kind) int {
	if status, ok := defaultStatus[kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// KindOf returns the kind of err, or "" if err is not an application error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err is an application error of the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// HTTPStatus maps any error to an HTTP status. Errors that are not
// application errors map to 500.
func HTTPStatus(err error) int {
	var e *Error
	if errors.As(err, &e) {
		if e.Status != 0 {
			return e.Status
		}
		return statusFor(e.Kind)
	}
	return http.StatusInternalServerError
}

// Truncate shortens s to at most limit bytes, appending a marker when it cuts.
// The cut never splits a UTF-8 sequence.
func Truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return s[:limit] + "... (truncated)"
}
