package todoapi

import (
	"errors"
	"fmt"
)

var (
	// ErrAuth is matched by every error caused by a missing or expired session.
	ErrAuth = errors.New("not authenticated")
	// ErrMalformedResponse is matched when a payload could not be read as tasks.
	ErrMalformedResponse = errors.New("malformed response")
	// ErrValidation is returned for input rejected before any request is sent.
	ErrValidation = errors.New("invalid request")
)

// AuthError wraps the session provider's failure to produce a token.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s: %v", ErrAuth, e.Err)
}

func (e *AuthError) Unwrap() []error {
	return []error{ErrAuth, e.Err}
}

// TransportError is a network failure or a non-2xx response.
type TransportError struct {
	Method     string
	Path       string
	StatusCode int    // 0 when no response arrived
	Message    string // server supplied message, if any
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s %s failed: %v", e.Method, e.Path, e.Err)
	}
	return fmt.Sprintf("%s %s failed with status %d: %s", e.Method, e.Path, e.StatusCode, e.Message)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// MalformedResponseError carries a payload that could not be decoded.
type MalformedResponseError struct {
	Payload []byte
	Err     error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("%s: %v", ErrMalformedResponse, e.Err)
}

func (e *MalformedResponseError) Unwrap() []error {
	return []error{ErrMalformedResponse, e.Err}
}
