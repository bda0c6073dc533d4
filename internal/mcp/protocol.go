package mcp

import (
	"encoding/json"
	"fmt"
)

// DefaultProtocolVersion is the MCP revision advertised when none is
// configured.
const DefaultProtocolVersion = "2024-11-05"

// InitializeParams holds the parameters for the initialize request.
type InitializeParams struct {
	ProtocolVersion string         `json:"protocolVersion"`
	Capabilities    map[string]any `json:"capabilities"`
	ClientInfo      ClientInfo     `json:"clientInfo"`
}

// ClientInfo identifies the client during the handshake.
type ClientInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// ServerInfo is the result of a successful initialize request. Only the
// commonly used fields are decoded; Raw keeps the complete object.
type ServerInfo struct {
	ProtocolVersion string         `json:"protocolVersion"`
	Capabilities    map[string]any `json:"capabilities,omitempty"`
	Server          Implementation `json:"serverInfo"`
	Instructions    string         `json:"instructions,omitempty"`

	Raw json.RawMessage `json:"-"`
}

// Implementation names a server and its version.
type Implementation struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

func parseServerInfo(raw json.RawMessage) (ServerInfo, error) {
	var info ServerInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		return ServerInfo{}, err
	}
	info.Raw = cloneFrame(raw)
	return info, nil
}

// ToolDescriptor describes a tool exposed by the server.
type ToolDescriptor struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	InputSchema InputSchema `json:"inputSchema"`
}

// InputSchema is the JSON Schema of a tool's arguments. Type, Properties
// and Required are decoded for convenience; Raw keeps the schema exactly as
// the server sent it and is used when re-encoding.
//
// Decoding never fails on a well-formed JSON value: members with an
// unexpected shape, such as boolean property schemas, are left out of the
// convenience fields and remain available in Raw.
type InputSchema struct {
	Type       SchemaType          `json:"type,omitempty"`
	Properties map[string]Property `json:"properties,omitempty"`
	Required   []string            `json:"required,omitempty"`

	Raw json.RawMessage `json:"-"`
}

type inputSchemaFields InputSchema

// UnmarshalJSON decodes the schema leniently and retains the raw bytes.
func (s *InputSchema) UnmarshalJSON(data []byte) error {
	*s = InputSchema{}
	if string(data) == "null" {
		return nil
	}
	s.Raw = cloneFrame(data)

	var members map[string]json.RawMessage
	if json.Unmarshal(data, &members) != nil {
		// Boolean schemas and other non-objects.
		return nil
	}
	if raw, ok := members["type"]; ok {
		_ = json.Unmarshal(raw, &s.Type)
	}
	var props map[string]json.RawMessage
	if json.Unmarshal(members["properties"], &props) == nil {
		for name, raw := range props {
			var p Property
			if !isJSONObject(raw) || json.Unmarshal(raw, &p) != nil {
				continue
			}
			if s.Properties == nil {
				s.Properties = make(map[string]Property, len(props))
			}
			s.Properties[name] = p
		}
	}
	var required []any
	if json.Unmarshal(members["required"], &required) == nil {
		for _, r := range required {
			if name, ok := r.(string); ok {
				s.Required = append(s.Required, name)
			}
		}
	}
	return nil
}

// MarshalJSON re-emits the original schema when one was decoded.
func (s InputSchema) MarshalJSON() ([]byte, error) {
	if len(s.Raw) > 0 {
		return s.Raw, nil
	}
	return json.Marshal(inputSchemaFields(s))
}

// IsRequired reports whether the named parameter is listed as required.
func (s InputSchema) IsRequired(name string) bool {
	for _, r := range s.Required {
		if r == name {
			return true
		}
	}
	return false
}

// Property describes a single tool parameter. Items is kept raw because it
// may be a schema, a boolean or a tuple list.
type Property struct {
	Type        SchemaType      `json:"type,omitempty"`
	Description string          `json:"description,omitempty"`
	Items       json.RawMessage `json:"items,omitempty"`
	Enum        []any           `json:"enum,omitempty"`
	Default     any             `json:"default,omitempty"`
}

// UnmarshalJSON decodes the members it understands and ignores those with
// an unexpected shape. data must be a JSON object.
func (p *Property) UnmarshalJSON(data []byte) error {
	var members map[string]json.RawMessage
	if err := json.Unmarshal(data, &members); err != nil {
		return fmt.Errorf("property: %w", err)
	}
	*p = Property{}
	if raw, ok := members["type"]; ok {
		_ = json.Unmarshal(raw, &p.Type)
	}
	if raw, ok := members["description"]; ok {
		_ = json.Unmarshal(raw, &p.Description)
	}
	if raw, ok := members["items"]; ok {
		p.Items = cloneFrame(raw)
	}
	if raw, ok := members["enum"]; ok {
		_ = json.Unmarshal(raw, &p.Enum)
	}
	if raw, ok := members["default"]; ok {
		_ = json.Unmarshal(raw, &p.Default)
	}
	return nil
}

// SchemaType is a JSON Schema "type". Schemas may declare a list such as
// ["string","null"]; the first non-null entry is kept.
type SchemaType string

// UnmarshalJSON accepts either a string or an array of strings.
func (t *SchemaType) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*t = SchemaType(single)
		return nil
	}
	var list []any
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("schema type: %w", err)
	}
	*t = ""
	for _, v := range list {
		if name, ok := v.(string); ok && name != "null" {
			*t = SchemaType(name)
			break
		}
	}
	return nil
}

// ContentBlock is one item of a tools/call result.
// ContentBlock is one item of a tools/call result.
type ContentBlock struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	MimeType string `json:"mimeType,omitempty"`
}

// CallToolParams holds the parameters for a tools/call request.
type CallToolParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}
