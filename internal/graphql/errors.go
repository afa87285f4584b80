package graphql

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Extension codes that mean the session is missing or insufficient
var authFailureCodes = map[string]bool{
	"UNAUTHENTICATED": true,
	"UNAUTHORIZED":    true,
	"FORBIDDEN":       true,
}

// TransportError reports a failure below the GraphQL layer: the request could
// not be sent, the upstream answered with a non-2xx status, or the body was
// not a GraphQL envelope.
type TransportError struct {
	StatusCode int // 0 when no response was received
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("graphql transport error (status %d): %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("graphql transport error: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ResponseError carries the GraphQL errors of an otherwise delivered response
type ResponseError struct {
	Errors []Error
}

func (e *ResponseError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, ge := range e.Errors {
		msgs = append(msgs, ge.Message)
	}
	return "graphql: " + strings.Join(msgs, "; ")
}

// Message returns the first error message
func (e *ResponseError) Message() string {
	if len(e.Errors) == 0 {
		return ""
	}
	return e.Errors[0].Message
}

// HasAuthCode reports whether any error carries an auth-failure extension code
func HasAuthCode(errs []Error) bool {
	for _, e := range errs {
		if authFailureCodes[e.Code()] {
			return true
		}
	}
	return false
}

// IsAuthFailure reports whether err signals a missing or rejected session
func IsAuthFailure(err error) bool {
	var te *TransportError
	if errors.As(err, &te) {
		return te.StatusCode == http.StatusUnauthorized || te.StatusCode == http.StatusForbidden
	}
	var re *ResponseError
	if errors.As(err, &re) {
		return HasAuthCode(re.Errors)
	}
	return false
}

// IsTransportError reports whether err happened below the GraphQL layer
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
