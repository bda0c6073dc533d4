package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"strings"

	"github.com/spf13/cobra"

	"github.com/thellimist/mcpclient/internal/config"
	"github.com/thellimist/mcpclient/internal/repl"
	"github.com/thellimist/mcpclient/internal/schema"
	"github.com/thellimist/mcpclient/internal/toolfilter"
)

var flagArgs string

var callCmd = &cobra.Command{
	Use:   "call [server] <tool> [key=value ...]",
	Short: "Call a tool once and print its result",
	Long: `Connect to a server, call one tool and print the result as JSON.

Arguments are given as key=value pairs, converted according to the tool's
input schema, or as a JSON object with --args. Pairs override --args, which
overrides the server's configured defaults. When the first argument names a
configured server it selects that server; otherwise the default server is
used.

Examples:
  mcpclient call add a=2 b=3
  mcpclient call remote echo message="hello world"
  mcpclient call add --args '{"a": 2, "b": 3}'`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCall,
}

func init() {
	callCmd.Flags().StringVar(&flagArgs, "args", "", "tool arguments as a JSON object")
}

func runCall(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	file, err := loadConfig()
	if err != nil {
		return err
	}
	serverName, toolName, pairs, err := splitCallArgs(file, args)
	if err != nil {
		return err
	}
	server, err := file.Resolve(serverName)
	if err != nil {
		return err
	}

	client, _, err := openClient(ctx, server)
	if err != nil {
		return err
	}
	defer client.Close()

	tools, err := client.ListTools(ctx)
	if err != nil {
		return err
	}
	tool, err := toolfilter.Find(tools, toolName)
	if err != nil {
		return err
	}
	params, err := schema.ExtractParams(tool.InputSchema.Raw)
	if err != nil {
		return err
	}

	callArgs := server.ToolDefaults(tool.Name)
	if flagArgs != "" {
		var fromJSON map[string]any
		if err := json.Unmarshal([]byte(flagArgs), &fromJSON); err != nil {
			return fmt.Errorf("--args must be a JSON object: %w", err)
		}
		maps.Copy(callArgs, fromJSON)
	}
	fromPairs, err := schema.ParseAssignments(params, pairs)
	if err != nil {
		return err
	}
	maps.Copy(callArgs, fromPairs)

	if !flagNoValidate {
		if err := schema.Validate(tool.InputSchema.Raw, callArgs); err != nil {
			return err
		}
	}

	logger.Debug("calling tool", "tool", tool.Name, "arguments", len(callArgs))
	result, err := client.CallTool(ctx, tool.Name, callArgs)
	if err != nil {
		return err
	}
	return repl.PrintJSON(cmd.OutOrStdout(), result)
}

// splitCallArgs separates the optional server name from the tool name and
// key=value pairs. A leading argument is a server name only when the
// configuration defines it and a tool name follows.
func splitCallArgs(file *config.File, args []string) (server, tool string, pairs []string, err error) {
	if len(args) >= 2 && !isAssignment(args[1]) {
		if _, ok := file.Servers[args[0]]; ok {
			return args[0], args[1], args[2:], nil
		}
	}
	if isAssignment(args[0]) {
		return "", "", nil, fmt.Errorf("expected a tool name before %q", args[0])
	}
	return "", args[0], args[1:], nil
}

func isAssignment(s string) bool {
	return strings.IndexByte(s, '=') > 0
}
