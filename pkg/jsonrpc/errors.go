package jsonrpc

import (
	"errors"
	"fmt"
	"net/http"
)

// StatusError is returned by Call when the server answered with a non-2xx
// HTTP status.
type StatusError struct {
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("jsonrpc: unexpected HTTP status %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// NetworkError is returned by Call when no HTTP status was obtained at all,
// e.g. connection refused or DNS failure.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("jsonrpc: network failure: %v", e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// StatusOf reports the HTTP status carried by a transport error. ok is false
// when the failure happened before any status was received.
func StatusOf(err error) (status int, ok bool) {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode, true
	}
	return 0, false
}
