package auth

import (
	"errors"
	"net/http"
)

// ErrInvalidParameter indicates a programmer or configuration error, such as
// a non-positive token TTL. It is never shown to API clients.
var ErrInvalidParameter = errors.New("invalid parameter")

// Kind classifies an authentication failure for HTTP status mapping.
type Kind int

const (
	// KindUnauthorized means the request carried missing, invalid, or
	// expired credentials. The client can recover by re-authenticating.
	KindUnauthorized Kind = iota

	// KindForbidden means the credentials were understood but access is
	// denied: a deactivated account, a missing admin flag, or a bad API
	// key. Retrying with the same credentials will not help.
	KindForbidden
)

// Error is a terminal authentication or authorization failure. The Reason is
// safe to return to clients; it never contains internal detail.
type Error struct {
	Kind   Kind
	Reason string
}

func (e *Error) Error() string {
	return e.Reason
}

// Unauthorized creates a 401-class error.
func Unauthorized(reason string) *Error {
	return &Error{Kind: KindUnauthorized, Reason: reason}
}

// Forbidden creates a 403-class error.
func Forbidden(reason string) *Error {
	return &Error{Kind: KindForbidden, Reason: reason}
}

// IsUnauthorized reports whether err is a 401-class auth error.
func IsUnauthorized(err error) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Kind == KindUnauthorized
}

// IsForbidden reports whether err is a 403-class auth error.
func IsForbidden(err error) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Kind == KindForbidden
}

// HTTPStatus maps an error from the authentication pipeline to an HTTP
// status code. Anything outside the taxonomy is a 500.
func HTTPStatus(err error) int {
	var ae *Error
	if errors.As(err, &ae) {
		switch ae.Kind {
		case KindUnauthorized:
			return http.StatusUnauthorized
		case KindForbidden:
			return http.StatusForbidden
		}
	}
	return http.StatusInternalServerError
}
