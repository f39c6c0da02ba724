package session

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrAuthExpired is returned after the server rejected the session
	// token with 401. The token has already been cleared.
	ErrAuthExpired = errors.New("Please re-login.")

	// ErrUnreachable matches failures where no HTTP status was obtained
	ErrUnreachable = errors.New("IPOS server is unreachable")

	// ErrNotLoggedIn is returned by operations that need a stored token
	ErrNotLoggedIn = errors.New("not logged in")
)

// invalidUIVersion is the message of the protocol error raised when a
// response lacks a parseable uiVersion.
const invalidUIVersion = "Invalid UI version in the JSON-RPC response"

// UnreachableError wraps the network failure behind ErrUnreachable
type UnreachableError struct {
	Err error
}

func (e *UnreachableError) Error() string {
	return ErrUnreachable.Error()
}

func (e *UnreachableError) Is(target error) bool {
	return target == ErrUnreachable
}

func (e *UnreachableError) Unwrap() error {
	return e.Err
}

// ServerError reports a non-401 HTTP error status
type ServerError struct {
	StatusCode int
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("Server returned error [%d]", e.StatusCode)
}

// RPCError is an application error reported inside a well-formed JSON-RPC
// envelope. Error returns the server message verbatim.
type RPCError struct {
	Code    int
	Message string
	Data    json.RawMessage
}

func (e *RPCError) Error() string {
	return e.Message
}

// ProtocolError reports a response that does not follow the Web RPC
// envelope contract.
type ProtocolError struct {
	Reason string
	Err    error
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return e.Reason
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}
