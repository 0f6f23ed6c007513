package ai

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind buckets AI service failures for user-facing notifications. The
// presentation layer distinguishes quota problems from credential problems from
// everything else; none of them may break the mutation flow that triggered a call.
type ErrorKind string

const (
	KindRateLimit  ErrorKind = "rate_limit"
	KindCredential ErrorKind = "credential"
	KindGeneric    ErrorKind = "generic"
)

// ServiceError is the typed failure returned by every client method.
type ServiceError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("ai service %s error: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("ai service %s error: %s", e.Kind, e.Message)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// KindOf extracts the error kind from err, defaulting to generic.
func KindOf(err error) ErrorKind {
	var se *ServiceError
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindGeneric
}

// classifyStatus maps an HTTP status code to an error kind.
func classifyStatus(code int) ErrorKind {
	switch code {
	case http.StatusTooManyRequests:
		return KindRateLimit
	case http.StatusUnauthorized, http.StatusForbidden:
		return KindCredential
	default:
		return KindGeneric
	}
}
