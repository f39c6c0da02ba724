package models

import "encoding/json"

// JSONRPCVersion is the only protocol version spoken on the wire.
const JSONRPCVersion = "2.0"

// JSONRPCRequest represents an outgoing JSON-RPC 2.0 request
type JSONRPCRequest struct {
	ID      int         `json:"id"`
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
}

// JSONRPCResponse represents a JSON-RPC 2.0 response envelope.
// Exactly one of Result and Error is expected to be present.
type JSONRPCResponse struct {
	ID      interface{}     `json:"id,omitempty"`
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *JSONRPCError   `json:"error,omitempty"`
}

// JSONRPCError represents a JSON-RPC error object
type JSONRPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}
