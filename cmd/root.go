package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/thellimist/mcpclient/internal/config"
	"github.com/thellimist/mcpclient/internal/mcp"
)

var appVersion = "dev"

func SetVersion(v string) {
	appVersion = v
}

var (
	flagConfig     string
	flagLogLevel   string
	flagLogFormat  string
	flagTimeout    time.Duration
	flagNoValidate bool
)

// logger is set by the root command's PersistentPreRunE.
var logger = slog.Default()

var rootCmd = &cobra.Command{
	Use:   "mcpclient [server]",
	Short: "Interactive client for MCP servers",
	Long: `mcpclient talks to Model Context Protocol servers over a child process's
stdio or a TCP socket. Servers are described in a configuration file
(mcpconfig.yaml, .json or .toml).

Without a subcommand it connects to the given or default server and starts
an interactive session.`,
	Args:              cobra.MaximumNArgs(1),
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: initLogging,
	RunE:              runConnect,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagConfig, "config", "", "configuration file (default $"+config.EnvPath+" or ./mcpconfig.{yaml,json,toml})")
	pf.StringVar(&flagLogLevel, "log-level", "warn", "log level: debug, info, warn, error")
	pf.StringVar(&flagLogFormat, "log-format", "text", "log format: text or json")
	pf.DurationVar(&flagTimeout, "timeout", 0, "response timeout override, e.g. 30s (default from config, else 10s)")
	pf.BoolVar(&flagNoValidate, "no-validate", false, "send tool arguments without checking them against the input schema")

	rootCmd.AddCommand(serversCmd, connectCmd, toolsCmd, callCmd)
	rootCmd.SetVersionTemplate(fmt.Sprintf("mcpclient v%s\n", appVersion))
}

func Execute() error {
	rootCmd.Version = appVersion
	return rootCmd.Execute()
}

func initLogging(cmd *cobra.Command, _ []string) error {
	l, err := setupLogger(flagLogLevel, flagLogFormat, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	logger = l
	return nil
}

// loadConfig reads the configuration file selected by --config.
func loadConfig() (*config.File, error) {
	path, err := config.Locate(flagConfig)
	if err != nil {
		return nil, err
	}
	logger.Debug("loading configuration", "path", path)
	return config.Load(path)
}

// resolveServer loads the configuration and returns the named server, or
// the default one when name is empty.
func resolveServer(name string) (*config.ServerConfig, error) {
	file, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return file.Resolve(name)
}

// openClient returns a client connected to server with a completed
// handshake.
func openClient(ctx context.Context, server *config.ServerConfig) (*mcp.Client, mcp.ServerInfo, error) {
	cfg, err := server.ClientConfig(logger.With("server", server.Key))
	if err != nil {
		return nil, mcp.ServerInfo{}, fmt.Errorf("server %q: %w", server.Key, err)
	}
	if flagTimeout > 0 {
		cfg.ResponseTimeout = flagTimeout
	}

	client := mcp.NewClient(cfg)
	info, err := client.ConnectAndInitialize(ctx)
	if err != nil {
		return nil, mcp.ServerInfo{}, err
	}
	return client, info, nil
}
