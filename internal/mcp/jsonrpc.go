package mcp

import (
	"encoding/json"
	"fmt"
)

// jsonrpcVersion is the protocol marker carried by every envelope.
const jsonrpcVersion = "2.0"

// Method names used by the client.
const (
	MethodInitialize  = "initialize"
	MethodInitialized = "notifications/initialized"
	MethodToolsList   = "tools/list"
	MethodToolsCall   = "tools/call"
)

// Request represents a JSON-RPC 2.0 request.
type Request struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	ID      uint64 `json:"id"`
	Params  any    `json:"params,omitempty"`
}

// NewRequest creates a request envelope with the given id.
func NewRequest(id uint64, method string, params any) *Request {
	return &Request{
		JSONRPC: jsonrpcVersion,
		Method:  method,
		ID:      id,
		Params:  params,
	}
}

// Notification is a JSON-RPC 2.0 notification. It has no id and the server
// sends no reply.
type Notification struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

// NewNotification creates a notification envelope.
func NewNotification(method string, params any) *Notification {
	return &Notification{
		JSONRPC: jsonrpcVersion,
		Method:  method,
		Params:  params,
	}
}

// Response represents a JSON-RPC 2.0 response. Exactly one of Result or
// Error is set in a well-formed response.
//
// ID is a pointer so that frames without an id (server notifications) can be
// told apart from a response to request 0.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *uint64         `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError represents a JSON-RPC 2.0 error object.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("server error %d: %s", e.Code, e.Message)
}

// hasID reports whether the response carries the given request id.
func (r *Response) hasID(id uint64) bool {
	return r.ID != nil && *r.ID == id
}

// isServerMessage reports whether the frame is a notification or request
// initiated by the server rather than a reply.
func (r *Response) isServerMessage() bool {
	return r.Method != ""
}

// DecodeResponse parses a single frame into a Response.
func DecodeResponse(raw json.RawMessage) (*Response, error) {
	var resp Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &resp, nil
}
