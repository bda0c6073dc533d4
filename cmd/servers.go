package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var serversCmd = &cobra.Command{
	Use:     "servers",
	Aliases: []string{"list"},
	Short:   "List the servers defined in the configuration file",
	Args:    cobra.NoArgs,
	RunE:    runServers,
}

func runServers(cmd *cobra.Command, _ []string) error {
	file, err := loadConfig()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	cyan := color.New(color.FgCyan, color.Bold)
	green := color.New(color.FgGreen)

	cyan.Fprintln(out, "=== Available MCP Servers ===")
	fmt.Fprintln(out)
	for _, s := range file.Summaries() {
		fmt.Fprint(out, "  ")
		green.Fprint(out, s.Key)
		if s.Default {
			fmt.Fprint(out, " (default)")
		}
		fmt.Fprintln(out)
		fmt.Fprintf(out, "    Name: %s\n", s.Name)
		if s.Description != "" {
			fmt.Fprintf(out, "    Description: %s\n", s.Description)
		}
		fmt.Fprintf(out, "    Type: %s\n", s.Type)
		fmt.Fprintf(out, "    Target: %s\n", s.Target)
		fmt.Fprintln(out)
	}
	fmt.Fprintln(out, "Usage: mcpclient connect [server]")
	return nil
}
