package schema

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Coerce converts text typed by a user into the JSON value p expects.
//
// Arrays accept either JSON ("[1, 2]") or a comma separated list. List
// elements follow the items type; when the schema names none, elements that
// look like integers become integers and the rest stay strings.
func Coerce(p Param, raw string) (any, error) {
	v, err := coerce(p.Type, p.ItemType, raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p.Name, err)
	}
	return v, nil
}

func coerce(typ, items, raw string) (any, error) {
	trimmed := strings.TrimSpace(raw)

	switch typ {
	case TypeInteger:
		n, err := strconv.ParseInt(trimmed, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("expected an integer, got %q", raw)
		}
		return n, nil

	case TypeNumber:
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return nil, fmt.Errorf("expected a number, got %q", raw)
		}
		return f, nil

	case TypeBoolean:
		b, ok := parseBool(trimmed)
		if !ok {
			return nil, fmt.Errorf("expected true or false, got %q", raw)
		}
		return b, nil

	case TypeArray:
		if strings.HasPrefix(trimmed, "[") {
			var list []any
			if err := json.Unmarshal([]byte(trimmed), &list); err != nil {
				return nil, fmt.Errorf("invalid JSON array: %w", err)
			}
			return list, nil
		}
		return coerceList(items, trimmed)

	case TypeObject:
		var obj map[string]any
		if err := json.Unmarshal([]byte(trimmed), &obj); err != nil || obj == nil {
			return nil, fmt.Errorf("expected a JSON object, got %q", raw)
		}
		return obj, nil

	default:
		return raw, nil
	}
}

func coerceList(items, s string) ([]any, error) {
	if s == "" {
		return []any{}, nil
	}
	parts := strings.Split(s, ",")
	out := make([]any, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if items == "" {
			if n, err := strconv.ParseInt(part, 10, 64); err == nil {
				out = append(out, n)
			} else {
				out = append(out, part)
			}
			continue
		}
		v, err := coerce(items, "", part)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func parseBool(s string) (value, ok bool) {
	switch strings.ToLower(s) {
	case "true", "t", "1", "yes", "y", "on":
		return true, true
	case "false", "f", "0", "no", "n", "off":
		return false, true
	}
	return false, false
}

// ParseAssignments turns key=value pairs into an argument object. Values of
// known parameters are coerced by type; unknown keys keep the text as is.
func ParseAssignments(params []Param, pairs []string) (map[string]any, error) {
	byName := make(map[string]Param, len(params))
	for _, p := range params {
		byName[p.Name] = p
	}

	args := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("argument %q must be key=value", pair)
		}
		p, known := byName[key]
		if !known {
			args[key] = value
			continue
		}
		v, err := Coerce(p, value)
		if err != nil {
			return nil, err
		}
		args[key] = v
	}
	return args, nil
}
