package mcp

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrConnect is returned when a transport cannot be established.
	ErrConnect = errors.New("connect failed")
	// ErrWrite is returned when a transport write fails.
	ErrWrite = errors.New("write failed")
	// ErrTimeout is returned when no response arrives within the
	// configured response timeout.
	ErrTimeout = errors.New("timeout waiting for server response")
	// ErrProtocol matches every *ProtocolError.
	ErrProtocol = errors.New("protocol error")
	// ErrTool matches every *ToolError.
	ErrTool = errors.New("tool error")
	// ErrNotConnected is returned by client operations that need a
	// transport while the client is disconnected.
	ErrNotConnected = errors.New("not connected")
)

// ProtocolError reports a response with an unexpected shape, or a JSON-RPC
// error where a successful result was required. Raw holds the offending
// frame, if any, for diagnostics.
type ProtocolError struct {
	Method string
	Reason string
	Raw    json.RawMessage
}

func (e *ProtocolError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Method, e.Reason)
	if len(e.Raw) > 0 {
		msg += ": " + truncate(e.Raw, 512)
	}
	return msg
}

// Is makes errors.Is(err, ErrProtocol) true for any *ProtocolError.
func (e *ProtocolError) Is(target error) bool {
	return target == ErrProtocol
}

// ToolError carries an application-level failure reported by the server for
// a tools/call request. Error returns the server's message verbatim.
type ToolError struct {
	Tool    string
	Code    int
	Message string
}

func (e *ToolError) Error() string {
	return e.Message
}

// Is makes errors.Is(err, ErrTool) true for any *ToolError.
func (e *ToolError) Is(target error) bool {
	return target == ErrTool
}
