package schema

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Validate checks args against a tool's inputSchema. An empty or null
// schema accepts anything.
func Validate(inputSchema json.RawMessage, args map[string]any) error {
	if len(inputSchema) == 0 || string(inputSchema) == "null" {
		return nil
	}

	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(inputSchema))
	if err != nil {
		return fmt.Errorf("schema: unmarshal inputSchema: %w", err)
	}

	c := jsonschema.NewCompiler()
	if err := c.AddResource("inputSchema.json", doc); err != nil {
		return fmt.Errorf("schema: add resource: %w", err)
	}
	compiled, err := c.Compile("inputSchema.json")
	if err != nil {
		return fmt.Errorf("schema: compile inputSchema: %w", err)
	}

	// Round trip through JSON so Go integer and float types reach the
	// validator in the same form a decoded document would.
	if args == nil {
		args = map[string]any{}
	}
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("schema: encode arguments: %w", err)
	}
	instance, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("schema: decode arguments: %w", err)
	}

	if err := compiled.Validate(instance); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}
