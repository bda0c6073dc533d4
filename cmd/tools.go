package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/thellimist/mcpclient/internal/repl"
	"github.com/thellimist/mcpclient/internal/toolfilter"
)

var (
	flagJSON    bool
	flagInclude string
	flagExclude string
)

var toolsCmd = &cobra.Command{
	Use:   "tools [server]",
	Short: "List the tools a server offers",
	Long: `Connect to a server, list its tools and disconnect.

Examples:
  mcpclient tools
  mcpclient tools remote --json
  mcpclient tools --include add,echo`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTools,
}

func init() {
	f := toolsCmd.Flags()
	f.BoolVar(&flagJSON, "json", false, "print the tool descriptors as JSON")
	f.StringVar(&flagInclude, "include", "", "only show these tools (comma-separated)")
	f.StringVar(&flagExclude, "exclude", "", "hide these tools (comma-separated)")
}

func runTools(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	server, err := resolveServer(firstArg(args))
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
	tools, err = toolfilter.Filter(tools, toolfilter.ParseList(flagInclude), toolfilter.ParseList(flagExclude))
	if err != nil {
		return err
	}

	if flagJSON {
		return repl.PrintJSON(cmd.OutOrStdout(), tools)
	}
	repl.PrintTools(cmd.OutOrStdout(), tools)
	return nil
}
