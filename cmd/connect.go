package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/thellimist/mcpclient/internal/repl"
)

var connectCmd = &cobra.Command{
	Use:   "connect [server]",
	Short: "Connect to a server and start an interactive session",
	Long: `Connect to a server, perform the MCP handshake, list its tools and start an
interactive session. The server defaults to default_server from the
configuration file.

Examples:
  mcpclient connect
  mcpclient connect local --log-level debug`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConnect,
}

func runConnect(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	out := cmd.OutOrStdout()
	server, err := resolveServer(firstArg(args))
	if err != nil {
		return err
	}

	color.New(color.FgCyan, color.Bold).Fprintln(out, "=== MCP Client Starting ===")
	fmt.Fprintf(out, "Server: %s\n", server.DisplayName())
	if server.Description != "" {
		fmt.Fprintf(out, "Description: %s\n", server.Description)
	}
	fmt.Fprintf(out, "Connection type: %s\n", server.ConnectionType)
	fmt.Fprintf(out, "Target: %s\n", server.Target())
	fmt.Fprintln(out, "\nConnecting...")

	client, info, err := openClient(ctx, server)
	if err != nil {
		return err
	}
	defer client.Close()

	repl.PrintServerInfo(out, info)

	tools, err := client.ListTools(ctx)
	if err != nil {
		return err
	}
	repl.PrintTools(out, tools)

	shell := repl.New(client, repl.Options{
		In:             cmd.InOrStdin(),
		Out:            out,
		Defaults:       server.ToolDefaults,
		SkipValidation: flagNoValidate,
		Logger:         logger,
	})
	return shell.Run(ctx)
}

func firstArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return ""
}
