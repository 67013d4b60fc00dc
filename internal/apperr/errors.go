// Package apperr defines the error taxonomy shared by the gateway: what kind
// of failure happened, which HTTP status it maps to and what the retailer is
// shown.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure.
type Kind int

const (
	KindInternal Kind = iota
	// KindValidation is caught before any network call.
	KindValidation
	// KindTransport covers unreachable upstreams and non-2xx HTTP statuses.
	KindTransport
	// KindBusiness is an upstream envelope whose status is not "success".
	KindBusiness
	// KindSession means the token is missing, malformed or expired.
	KindSession
	KindNotFound
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindTransport:
		return "transport"
	case KindBusiness:
		return "business"
	case KindSession:
		return "session"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	default:
		return "internal"
	}
}

// Error is a classified failure with a retailer-facing message.
type Error struct {
	Kind    Kind
	Code    string // Stable machine code, e.g. "amount_too_high"
	Message string
	Status  int // Upstream HTTP status for transport errors, 0 otherwise
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches errors of the same kind and code, so sentinel values built
// with these constructors work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Code != "" && t.Code == e.Code
}

// Validation builds a validation error.
func Validation(code, message string) *Error {
	return &Error{Kind: KindValidation, Code: code, Message: message}
}

// Business builds an error for an upstream-reported failure. An empty
// message falls back to a generic one.
func Business(message string) *Error {
	if message == "" {
		message = "Request could not be completed. Please try again."
	}
	return &Error{Kind: KindBusiness, Code: "business", Message: message}
}

// Session builds a session error; the client must log the retailer out.
func Session(message string, err error) *Error {
	return &Error{Kind: KindSession, Code: "session", Message: message, Err: err}
}

// NotFound builds a not-found error.
func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Code: "not_found", Message: message}
}

// Conflict builds an error for an operation that is illegal in the current state.
func Conflict(code, message string) *Error {
	return &Error{Kind: KindConflict, Code: code, Message: message}
}

// Transport builds an error for an upstream that could not be reached or
// answered with a non-2xx status (status 0 when nothing came back).
func Transport(status int, err error) *Error {
	return &Error{Kind: KindTransport, Code: "transport", Message: TransportMessage(status), Status: status, Err: err}
}

// TransportMessage returns the retailer-facing text for an upstream HTTP status.
func TransportMessage(status int) string {
	switch status {
	case http.StatusUnauthorized:
		return "Your session has expired. Please log in again."
	case http.StatusPaymentRequired:
		return "Insufficient wallet balance for this transaction."
	case http.StatusForbidden:
		return "You are not permitted to perform this action."
	case http.StatusInternalServerError:
		return "Server error. Please try again later."
	default:
		return "Network error. Please check your connection and try again."
	}
}

// Wrap attaches a cause to a classified error without changing its kind.
func Wrap(e *Error, err error) *Error {
	c := *e
	c.Err = err
	return &c
}

// As extracts an *Error from err. Unclassified errors become KindInternal.
func As(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{Kind: KindInternal, Code: "internal", Message: "Something went wrong. Please try again.", Err: err}
}

// KindOf returns the kind of err.
func KindOf(err error) Kind {
	return As(err).Kind
}

// HTTPStatus maps an error to the gateway's response status.
func HTTPStatus(err error) int {
	e := As(err)
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindTransport:
		// An upstream 401 means the retailer's token is no longer accepted.
		if e.Status == http.StatusUnauthorized {
			return http.StatusUnauthorized
		}
		return http.StatusBadGateway
	case KindBusiness:
		return http.StatusUnprocessableEntity
	case KindSession:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// ForcesLogout reports whether the client must drop its session.
func ForcesLogout(err error) bool {
	e := As(err)
	return e.Kind == KindSession || (e.Kind == KindTransport && e.Status == http.StatusUnauthorized)
}
