package schema

import (
	"encoding/json"
	"fmt"
	"sort"
)

// ExtractParams parses an inputSchema and returns one Param per property,
// required parameters first and alphabetical within each group.
//
// A nil, null or property-less schema yields no parameters and no error.
func ExtractParams(inputSchema json.RawMessage) ([]Param, error) {
	if len(inputSchema) == 0 || string(inputSchema) == "null" {
		return nil, nil
	}

	var root map[string]any
	if err := json.Unmarshal(inputSchema, &root); err != nil {
		return nil, fmt.Errorf("schema: failed to parse inputSchema: %w", err)
	}

	properties, _ := root["properties"].(map[string]any)
	if len(properties) == 0 {
		return nil, nil
	}

	required := make(map[string]bool)
	if list, ok := root["required"].([]any); ok {
		for _, v := range list {
			if s, ok := v.(string); ok {
				required[s] = true
			}
		}
	}

	params := make([]Param, 0, len(properties))
	for name, raw := range properties {
		prop, ok := raw.(map[string]any)
		if !ok {
			continue
		}

		p := Param{
			Name:     name,
			Type:     normalizeType(prop["type"]),
			Required: required[name],
		}
		if desc, ok := prop["description"].(string); ok {
			p.Description = desc
		}
		if p.Type == TypeArray {
			items, _ := prop["items"].(map[string]any)
			p.ItemType = itemType(items)
		}
		if def, ok := prop["default"]; ok {
			p.Default = def
		}
		if enum, ok := prop["enum"].([]any); ok {
			p.Enum = make([]string, 0, len(enum))
			for _, v := range enum {
				p.Enum = append(p.Enum, fmt.Sprint(v))
			}
		}
		params = append(params, p)
	}

	sort.Slice(params, func(i, j int) bool {
		if params[i].Required != params[j].Required {
			return params[i].Required
		}
		return params[i].Name < params[j].Name
	})
	return params, nil
}
