// Package schema interprets tool input schemas: it lists a tool's
// parameters, converts typed-in text to JSON values and validates argument
// objects before they are sent.
package schema

// Param describes one property of a tool's input schema.
type Param struct {
	Name        string // Property key as sent to the server
	Type        string // "string", "integer", "number", "boolean", "array" or "object"
	ItemType    string // Element type for arrays, empty if unspecified
	Description string
	Required    bool
	Default     any      // From the schema's default, nil if not set
	Enum        []string // Allowed values rendered as text, nil if not an enum
}

// Label is the parameter name with a trailing "*" when it is required.
func (p Param) Label() string {
	if p.Required {
		return p.Name + "*"
	}
	return p.Name
}

// Hint is the text shown when prompting for the parameter: the description
// when there is one, otherwise the type.
func (p Param) Hint() string {
	if p.Description != "" {
		return p.Description
	}
	return p.Type
}
