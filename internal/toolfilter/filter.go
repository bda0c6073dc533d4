// Package toolfilter selects tools from a server's catalogue by name and
// suggests close matches for names that do not exist.
package toolfilter

import (
	"errors"
	"fmt"
	"strings"

	"github.com/thellimist/mcpclient/internal/mcp"
)

// ErrNotFound is wrapped by errors for tool names the server does not offer.
var ErrNotFound = errors.New("tool not found")

// ParseList splits a comma-separated string into trimmed, deduplicated tool
// names in order of first appearance.
func ParseList(csv string) []string {
	if csv == "" {
		return nil
	}

	seen := make(map[string]struct{})
	var result []string
	for _, p := range strings.Split(csv, ",") {
		name := strings.TrimSpace(p)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		result = append(result, name)
	}
	return result
}

// Names returns the tool names in catalogue order.
func Names(tools []mcp.ToolDescriptor) []string {
	names := make([]string, 0, len(tools))
	for _, t := range tools {
		names = append(names, t.Name)
	}
	return names
}

// Find returns the tool called name. The error for an unknown name lists
// the available tools and, when one is close, suggests it.
func Find(tools []mcp.ToolDescriptor, name string) (mcp.ToolDescriptor, error) {
	for _, t := range tools {
		if t.Name == name {
			return t, nil
		}
	}
	return mcp.ToolDescriptor{}, notFound(name, Names(tools))
}

func notFound(name string, available []string) error {
	msg := fmt.Sprintf("%s. Available tools: %s", name, strings.Join(available, ", "))
	if suggestion := Suggest(name, available); suggestion != "" {
		msg += fmt.Sprintf(". Did you mean '%s'?", suggestion)
	}
	return fmt.Errorf("%w: %s", ErrNotFound, msg)
}

// Filter applies include or exclude filtering to tools.
//
//   - include and exclude together are an error.
//   - With include, only the named tools are kept, in include order. An
//     unknown name is an error.
//   - With exclude, the named tools are dropped. Excluding everything is an
//     error.
//   - With neither, tools are returned unchanged.
func Filter(tools []mcp.ToolDescriptor, include, exclude []string) ([]mcp.ToolDescriptor, error) {
	if len(include) > 0 && len(exclude) > 0 {
		return nil, errors.New("--include and --exclude cannot be used together")
	}
	if len(include) == 0 && len(exclude) == 0 {
		return tools, nil
	}

	if len(include) > 0 {
		result := make([]mcp.ToolDescriptor, 0, len(include))
		for _, name := range include {
			t, err := Find(tools, name)
			if err != nil {
				return nil, err
			}
			result = append(result, t)
		}
		return result, nil
	}

	skip := make(map[string]struct{}, len(exclude))
	for _, name := range exclude {
		skip[name] = struct{}{}
	}
	var result []mcp.ToolDescriptor
	for _, t := range tools {
		if _, ok := skip[t.Name]; !ok {
			result = append(result, t)
		}
	}
	if len(result) == 0 {
		return nil, errors.New("all tools excluded")
	}
	return result, nil
}
