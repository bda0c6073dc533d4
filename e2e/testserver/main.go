// Package main implements a minimal MCP stdio server for E2E testing.
// echo_params returns the received arguments as JSON text content so tests
// can assert exactly which arguments were sent.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

func main() {
	s := server.NewMCPServer("echo-params", "1.0.0", server.WithInstructions("E2E test server"))

	s.AddTool(
		mcp.NewTool("echo_params",
			mcp.WithDescription("Echoes all received params as JSON"),
			mcp.WithString("org_id", mcp.Description("Organization ID")),
			mcp.WithString("query", mcp.Description("Search query"), mcp.Required()),
			mcp.WithNumber("limit", mcp.Description("Page size")),
		),
		echoHandler,
	)

	s.AddTool(
		mcp.NewTool("add",
			mcp.WithDescription("Adds two numbers"),
			mcp.WithNumber("a", mcp.Required()),
			mcp.WithNumber("b", mcp.Required()),
		),
		func(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := request.GetArguments()
			a, _ := args["a"].(float64)
			b, _ := args["b"].(float64)
			return mcp.NewToolResultText(fmt.Sprintf("%g", a+b)), nil
		},
	)

	// fail always returns a handler error, which becomes a JSON-RPC error.
	s.AddTool(
		mcp.NewTool("fail", mcp.WithDescription("Always fails")),
		func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return nil, errors.New("boom")
		},
	)

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
	}
}

func echoHandler(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(request.GetArguments())
	if err != nil {
		return nil, fmt.Errorf("marshal args: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}
