package repl

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/thellimist/mcpclient/internal/mcp"
	"github.com/thellimist/mcpclient/internal/schema"
)

var (
	heading   = color.New(color.FgCyan, color.Bold)
	highlight = color.New(color.FgGreen)
	dim       = color.New(color.Faint)
	warn      = color.New(color.FgYellow)
	failure   = color.New(color.FgRed)
)

// PrintServerInfo writes the name, version and protocol reported by the
// server's handshake.
func PrintServerInfo(w io.Writer, info mcp.ServerInfo) {
	heading.Fprintln(w, "\n=== Connection Established ===")
	fmt.Fprintf(w, "Server: %s\n", orUnknown(info.Server.Name))
	fmt.Fprintf(w, "Version: %s\n", orUnknown(info.Server.Version))
	fmt.Fprintf(w, "Protocol: %s\n", orUnknown(info.ProtocolVersion))
	if info.Instructions != "" {
		fmt.Fprintf(w, "Instructions: %s\n", info.Instructions)
	}
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}

// PrintTools writes a numbered listing of tools with their parameters.
// Required parameters are marked with "*".
func PrintTools(w io.Writer, tools []mcp.ToolDescriptor) {
	heading.Fprintln(w, "\n=== Available Tools ===")
	fmt.Fprintf(w, "Found %d tools:\n\n", len(tools))

	for i, tool := range tools {
		fmt.Fprintf(w, "%d. ", i+1)
		highlight.Fprintln(w, tool.Name)
		if tool.Description != "" {
			fmt.Fprintf(w, "   %s\n", tool.Description)
		}

		params, err := schema.ExtractParams(tool.InputSchema.Raw)
		if err != nil {
			warn.Fprintf(w, "   (unreadable input schema: %v)\n", err)
		}
		if len(params) > 0 {
			fmt.Fprintln(w, "   Parameters:")
			for _, p := range params {
				fmt.Fprintf(w, "     - %s: ", p.Label())
				dim.Fprintln(w, p.Description)
			}
		}
		fmt.Fprintln(w)
	}
}

// PrintJSON writes v as indented JSON.
func PrintJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
