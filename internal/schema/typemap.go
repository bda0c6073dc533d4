package schema

// Schema type names.
const (
	TypeString  = "string"
	TypeInteger = "integer"
	TypeNumber  = "number"
	TypeBoolean = "boolean"
	TypeArray   = "array"
	TypeObject  = "object"
)

// normalizeType reduces a JSON Schema "type" member to a single type name.
// A list such as ["string","null"] yields its first non-null entry; a
// missing or unknown type yields "string".
func normalizeType(schemaType any) string {
	switch t := schemaType.(type) {
	case string:
		return knownType(t)
	case []any:
		for _, v := range t {
			if s, ok := v.(string); ok && s != "null" {
				return knownType(s)
			}
		}
	}
	return TypeString
}

func knownType(t string) string {
	switch t {
	case TypeString, TypeInteger, TypeNumber, TypeBoolean, TypeArray, TypeObject:
		return t
	default:
		return TypeString
	}
}

// itemType returns the element type of an array schema, or "" when the
// items schema does not name one.
func itemType(items map[string]any) string {
	if items == nil {
		return ""
	}
	if _, ok := items["type"]; !ok {
		return ""
	}
	return normalizeType(items["type"])
}
