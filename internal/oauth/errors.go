package oauth

import (
	"errors"
	"net/http"
)

// Kind classifies a flow failure and decides the HTTP status it maps to.
type Kind int

const (
	KindClientInput Kind = iota + 1
	KindConfiguration
	KindAuthentication
	KindUpstream
	KindNotConnected
)

func (k Kind) Status() int {
	switch k {
	case KindClientInput:
		return http.StatusBadRequest
	case KindAuthentication, KindNotConnected:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// Outcome is the metrics label for the kind.
func (k Kind) Outcome() string {
	switch k {
	case KindClientInput:
		return "client_error"
	case KindConfiguration:
		return "config_error"
	case KindAuthentication:
		return "auth_error"
	case KindNotConnected:
		return "not_connected"
	default:
		return "upstream_error"
	}
}

// Error is returned by every Flow operation. Msg is safe to show to callers;
// Err carries the underlying cause for logs.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

func clientInput(msg string) *Error { return &Error{Kind: KindClientInput, Msg: msg} }

func configuration(msg string) *Error { return &Error{Kind: KindConfiguration, Msg: msg} }

func authentication(msg string) *Error { return &Error{Kind: KindAuthentication, Msg: msg} }

func notConnected(msg string) *Error { return &Error{Kind: KindNotConnected, Msg: msg} }

func upstream(msg string, err error) *Error {
	return &Error{Kind: KindUpstream, Msg: msg, Err: err}
}

// StatusOf maps err to an HTTP status and a caller-safe message. Errors that
// are not *Error become a generic 500.
func StatusOf(err error) (int, string) {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind.Status(), fe.Msg
	}
	return http.StatusInternalServerError, "internal error"
}

func outcomeOf(err error) string {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind.Outcome()
	}
	return "upstream_error"
}
