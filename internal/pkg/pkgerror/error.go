package pkgerror

import (
	"net/http"

	pkgerrors "github.com/pkg/errors"
)

// Code selects the HTTP status an Error is answered with.
type Code int

const (
	CodeInternal         Code = iota // unexpected failure, answered with 500
	CodeNotFound                     // no such route or resource
	CodeMethodNotAllowed             // route exists for another method
)

// Error is the error type the router turns into a JSON response.
//
// msg is what the client sees; err, when set, is the cause that gets logged.
type Error struct {
	err  error
	msg  string
	code Code
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.err != nil {
		return e.err.Error()
	}
	return e.msg
}

// Msg returns the client-facing message.
func (e *Error) Msg() string {
	return e.msg
}

// Code returns the error code.
func (e *Error) Code() Code {
	return e.code
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.err
}

// IsServer reports whether the error is a failure of the service itself.
func (e *Error) IsServer() bool {
	return e.code == CodeInternal
}

// StatusCode maps the error code to an HTTP status code.
func (e *Error) StatusCode() int {
	switch e.code {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeMethodNotAllowed:
		return http.StatusMethodNotAllowed
	default:
		return http.StatusInternalServerError
	}
}

// NewServer wraps err as an internal failure. The cause records the caller's
// stack unless it already carries one. err may be nil when there is nothing
// to log, for example after a recovered panic.
func NewServer(err error) error {
	if err != nil && !hasStack(err) {
		err = pkgerrors.WithStack(err)
	}
	return &Error{err: err, msg: "Internal server error", code: CodeInternal}
}

// NewNotFound reports a missing route or resource with msg shown to the client.
func NewNotFound(msg string) error {
	return &Error{msg: msg, code: CodeNotFound}
}

// NewMethodNotAllowed reports a request whose method the route does not serve.
func NewMethodNotAllowed() error {
	return &Error{msg: "method not allowed", code: CodeMethodNotAllowed}
}
