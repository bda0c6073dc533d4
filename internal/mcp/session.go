package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultResponseTimeout bounds the wait for a single response.
	DefaultResponseTimeout = 10 * time.Second

	// pollSlice is the longest single read wait. Reads return as soon as
	// data arrives; the slice only bounds how late a cancelled context is
	// noticed.
	pollSlice = 100 * time.Millisecond
)

// SessionOptions configures a Session.
type SessionOptions struct {
	ProtocolVersion string
	ClientName      string
	ClientVersion   string
	ResponseTimeout time.Duration
	Logger          *slog.Logger
}

// Session implements the MCP request/response semantics over a Transport.
// A Session is not safe for concurrent use: at most one request is in
// flight at a time.
type Session struct {
	transport Transport
	opts      SessionOptions
	logger    *slog.Logger
	decoder   Decoder

	nextID      uint64
	initialized bool
	serverInfo  ServerInfo
	tools       []ToolDescriptor
}

// NewSession creates a session that owns transport.
func NewSession(transport Transport, opts SessionOptions) *Session {
	if opts.ProtocolVersion == "" {
		opts.ProtocolVersion = DefaultProtocolVersion
	}
	if opts.ResponseTimeout <= 0 {
		opts.ResponseTimeout = DefaultResponseTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		transport: transport,
		opts:      opts,
		logger:    logger.With("mcp_session", uuid.NewString()),
	}
}

// Initialized reports whether the handshake has completed.
func (s *Session) Initialized() bool {
	return s.initialized
}

// ServerInfo returns the cached handshake result.
func (s *Session) ServerInfo() ServerInfo {
	return s.serverInfo
}

// Tools returns the catalog from the last successful ListTools call.
func (s *Session) Tools() []ToolDescriptor {
	return s.tools
}

// Initialize performs the handshake. After the first success it returns the
// cached ServerInfo without contacting the server again.
func (s *Session) Initialize(ctx context.Context) (ServerInfo, error) {
	if s.initialized {
		return s.serverInfo, nil
	}

	params := InitializeParams{
		ProtocolVersion: s.opts.ProtocolVersion,
		Capabilities:    map[string]any{},
		ClientInfo: ClientInfo{
			Name:    s.opts.ClientName,
			Version: s.opts.ClientVersion,
		},
	}

	resp, raw, err := s.sendAndAwait(ctx, MethodInitialize, params)
	if err != nil {
		return ServerInfo{}, err
	}
	if resp.Error != nil || len(resp.Result) == 0 {
		return ServerInfo{}, &ProtocolError{Method: MethodInitialize, Reason: "failed to initialize", Raw: raw}
	}
	info, err := parseServerInfo(resp.Result)
	if err != nil {
		return ServerInfo{}, &ProtocolError{Method: MethodInitialize, Reason: "malformed result", Raw: raw}
	}

	s.serverInfo = info
	s.initialized = true

	s.logger.Info("MCP server initialized",
		"server_name", info.Server.Name,
		"server_version", info.Server.Version,
		"protocol_version", info.ProtocolVersion,
	)

	// Fire-and-forget; the server sends no reply.
	if err := s.notify(MethodInitialized, nil); err != nil {
		return info, fmt.Errorf("send initialized notification: %w", err)
	}
	return info, nil
}

// ListTools fetches the tool catalog. The cache is replaced only when the
// request succeeds.
func (s *Session) ListTools(ctx context.Context) ([]ToolDescriptor, error) {
	resp, raw, err := s.sendAndAwait(ctx, MethodToolsList, nil)
	if err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, &ProtocolError{Method: MethodToolsList, Reason: "failed to list tools", Raw: raw}
	}

	var result struct {
		Tools json.RawMessage `json:"tools"`
	}
	if err := json.Unmarshal(resp.Result, &result); err != nil || !isJSONArray(result.Tools) {
		return nil, &ProtocolError{Method: MethodToolsList, Reason: "failed to list tools", Raw: raw}
	}
	var tools []ToolDescriptor
	if err := json.Unmarshal(result.Tools, &tools); err != nil {
		return nil, &ProtocolError{Method: MethodToolsList, Reason: "malformed tool descriptor: " + err.Error(), Raw: raw}
	}
	if tools == nil {
		tools = []ToolDescriptor{}
	}

	s.tools = tools
	s.logger.Info("discovered MCP tools", "count", len(tools))
	return tools, nil
}

// CallTool invokes a tool by name.
//
// When the result carries content blocks, the text of every "text" block is
// concatenated in order. If the concatenation is valid JSON the decoded
// value is returned, otherwise map[string]any{"text": concatenation}. A
// result without content is returned decoded as is. A JSON-RPC error is
// returned as a *ToolError.
func (s *Session) CallTool(ctx context.Context, name string, args map[string]any) (any, error) {
	if args == nil {
		args = map[string]any{}
	}
	resp, raw, err := s.sendAndAwait(ctx, MethodToolsCall, CallToolParams{Name: name, Arguments: args})
	if err != nil {
		return nil, err
	}

	if len(resp.Result) > 0 && string(resp.Result) != "null" {
		return interpretToolResult(resp.Result, raw)
	}
	if resp.Error != nil {
		return nil, &ToolError{Tool: name, Code: resp.Error.Code, Message: resp.Error.Message}
	}
	return nil, &ProtocolError{Method: MethodToolsCall, Reason: "unrecognized response", Raw: raw}
}

func interpretToolResult(result, raw json.RawMessage) (any, error) {
	var v any
	if err := json.Unmarshal(result, &v); err != nil {
		return nil, &ProtocolError{Method: MethodToolsCall, Reason: "unrecognized response", Raw: raw}
	}
	m, ok := v.(map[string]any)
	if !ok || m["content"] == nil {
		return v, nil
	}

	var envelope struct {
		Content []json.RawMessage `json:"content"`
	}
	if err := json.Unmarshal(result, &envelope); err != nil {
		return nil, &ProtocolError{Method: MethodToolsCall, Reason: "malformed content", Raw: raw}
	}
	blocks := make([]ContentBlock, 0, len(envelope.Content))
	for _, item := range envelope.Content {
		block, err := decodeContentBlock(item)
		if err != nil {
			return nil, &ProtocolError{Method: MethodToolsCall, Reason: "malformed content", Raw: raw}
		}
		blocks = append(blocks, block)
	}
	return ParseTextContent(blocks), nil
}

// decodeContentBlock reads the block type first. Only text blocks have their
// text decoded; the other members of non-text blocks are not inspected.
func decodeContentBlock(item json.RawMessage) (ContentBlock, error) {
	var members map[string]json.RawMessage
	if err := json.Unmarshal(item, &members); err != nil {
		return ContentBlock{}, err
	}
	var block ContentBlock
	if raw, ok := members["type"]; ok {
		if err := json.Unmarshal(raw, &block.Type); err != nil {
			return ContentBlock{}, err
		}
	}
	if block.Type != "text" {
		return block, nil
	}
	if raw, ok := members["text"]; ok {
		if err := json.Unmarshal(raw, &block.Text); err != nil {
			return ContentBlock{}, err
		}
	}
	return block, nil
}

// JoinText concatenates the text of all "text" blocks in order. Other block
// types are ignored.
func JoinText(blocks []ContentBlock) string {
	var b strings.Builder
	for _, block := range blocks {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	return b.String()
}

// ParseTextContent joins the text blocks and decodes the result as JSON when
// possible, falling back to map[string]any{"text": joined}.
func ParseTextContent(blocks []ContentBlock) any {
	text := JoinText(blocks)
	var v any
	if err := json.Unmarshal([]byte(text), &v); err == nil {
		return v
	}
	return map[string]any{"text": text}
}

// notify writes a notification. No reply is awaited.
func (s *Session) notify(method string, params any) error {
	data, err := Encode(NewNotification(method, params))
	if err != nil {
		return err
	}
	s.logger.Debug("MCP send", "method", method)
	return s.transport.WriteLine(data)
}

// sendAndAwait writes a request and waits for the response carrying its id.
// Frames for other ids (late replies to abandoned requests), server
// notifications and server requests are drained and logged. The raw frame
// of the response is returned with it for diagnostics.
func (s *Session) sendAndAwait(ctx context.Context, method string, params any) (*Response, json.RawMessage, error) {
	s.nextID++
	id := s.nextID

	data, err := Encode(NewRequest(id, method, params))
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", method, err)
	}
	s.logger.Debug("MCP send", "method", method, "id", id)
	if err := s.transport.WriteLine(data); err != nil {
		return nil, nil, fmt.Errorf("%s: %w", method, err)
	}

	deadline := time.Now().Add(s.opts.ResponseTimeout)
	for {
		// Drain frames already buffered before reading more.
		for {
			frame, ok, err := s.decoder.Next()
			if err != nil {
				s.logger.Debug("skipping non-JSON output from MCP server", "error", err)
				continue
			}
			if !ok {
				break
			}
			resp, err := DecodeResponse(frame)
			if err != nil {
				s.logger.Debug("skipping undecodable MCP frame", "error", err)
				continue
			}
			if resp.isServerMessage() {
				s.logger.Debug("ignoring server-initiated MCP message", "method", resp.Method)
				continue
			}
			if !resp.hasID(id) {
				s.logger.Debug("discarding MCP response for another request", "want_id", id, "frame", truncate(frame, 200))
				continue
			}
			s.logger.Debug("MCP receive", "method", method, "id", id)
			return resp, frame, nil
		}

		if err := ctx.Err(); err != nil {
			return nil, nil, fmt.Errorf("%s: %w", method, err)
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, nil, fmt.Errorf("%s: %w after %s", method, ErrTimeout, s.opts.ResponseTimeout)
		}

		chunk, err := s.transport.ReadAvailable(min(remaining, pollSlice))
		if len(chunk) > 0 {
			s.decoder.Feed(chunk)
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil, nil, &ProtocolError{Method: method, Reason: "connection closed by server"}
		}
		if err != nil {
			return nil, nil, fmt.Errorf("%s: read: %w", method, err)
		}
	}
}

func isJSONArray(raw json.RawMessage) bool {
	trimmed := strings.TrimSpace(string(raw))
	return strings.HasPrefix(trimmed, "[")
}

func isJSONObject(raw json.RawMessage) bool {
	trimmed := strings.TrimSpace(string(raw))
	return strings.HasPrefix(trimmed, "{")
}
