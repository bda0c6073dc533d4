// Package repl implements the interactive shell: list tools, call one with
// prompted arguments, show server information.
package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"strconv"
	"strings"

	"github.com/thellimist/mcpclient/internal/mcp"
	"github.com/thellimist/mcpclient/internal/schema"
	"github.com/thellimist/mcpclient/internal/toolfilter"
)

// Client is the part of *mcp.Client the shell needs.
type Client interface {
	ListTools(ctx context.Context) ([]mcp.ToolDescriptor, error)
	CallTool(ctx context.Context, name string, args map[string]any) (any, error)
	ServerInfo() (mcp.ServerInfo, bool)
	Tools() []mcp.ToolDescriptor
}

// Options configures a REPL.
type Options struct {
	In  io.Reader
	Out io.Writer

	// Defaults returns preset arguments for a tool. Optional.
	Defaults func(tool string) map[string]any
	// SkipValidation sends arguments without checking them against the
	// tool's input schema.
	SkipValidation bool

	Logger *slog.Logger
}

// REPL reads commands from In and writes results to Out.
type REPL struct {
	client Client
	opts   Options
	in     *bufio.Scanner
	out    io.Writer
	logger *slog.Logger
}

// errInputClosed ends the loop when In is exhausted.
var errInputClosed = errors.New("input closed")

var commands = []string{"list", "call", "quick", "info", "help", "quit", "exit"}

// New creates a REPL over client.
func New(client Client, opts Options) *REPL {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &REPL{
		client: client,
		opts:   opts,
		in:     bufio.NewScanner(opts.In),
		out:    opts.Out,
		logger: logger,
	}
}

// Run processes commands until quit, exit, end of input or ctx is done.
// Command failures are reported and the loop continues.
func (r *REPL) Run(ctx context.Context) error {
	heading.Fprintln(r.out, "\n=== Interactive Mode ===")
	r.printHelp()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		line, err := r.prompt("> ")
		if errors.Is(err, errInputClosed) {
			fmt.Fprintln(r.out, "\nGoodbye!")
			return nil
		}
		if err != nil {
			return err
		}

		cmd, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
		arg = strings.TrimSpace(arg)

		switch cmd {
		case "":
			continue
		case "quit", "exit":
			fmt.Fprintln(r.out, "Goodbye!")
			return nil
		case "help":
			r.printHelp()
		case "list":
			r.list(ctx)
		case "info":
			r.info()
		case "quick":
			err = r.quick(ctx)
		case "call":
			if arg == "" {
				fmt.Fprintln(r.out, "Usage: call <tool>")
				continue
			}
			err = r.promptAndCall(ctx, arg)
		default:
			msg := "Unknown command. Type 'list', 'call <tool>', 'quick', 'info', 'help', or 'quit'"
			if s := toolfilter.Suggest(cmd, commands); s != "" {
				msg += fmt.Sprintf(". Did you mean '%s'?", s)
			}
			fmt.Fprintln(r.out, msg)
		}

		if errors.Is(err, errInputClosed) {
			fmt.Fprintln(r.out, "\nGoodbye!")
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func (r *REPL) printHelp() {
	fmt.Fprintln(r.out, "Commands:")
	fmt.Fprintln(r.out, "  list        - Show available tools")
	fmt.Fprintln(r.out, "  call <tool> - Call a tool (you'll be prompted for arguments)")
	fmt.Fprintln(r.out, "  quick       - Quick menu to select and call a tool")
	fmt.Fprintln(r.out, "  info        - Show server information")
	fmt.Fprintln(r.out, "  help        - Show this help")
	fmt.Fprintln(r.out, "  quit        - Exit")
	fmt.Fprintln(r.out)
}

// prompt writes label and reads one line.
func (r *REPL) prompt(label string) (string, error) {
	fmt.Fprint(r.out, label)
	if !r.in.Scan() {
		if err := r.in.Err(); err != nil {
			return "", err
		}
		return "", errInputClosed
	}
	return strings.TrimSpace(r.in.Text()), nil
}

func (r *REPL) list(ctx context.Context) {
	tools, err := r.client.ListTools(ctx)
	if err != nil {
		r.reportError(err)
		return
	}
	PrintTools(r.out, tools)
}

func (r *REPL) info() {
	info, ok := r.client.ServerInfo()
	if !ok {
		warn.Fprintln(r.out, "Not initialized.")
		return
	}
	heading.Fprintln(r.out, "\n=== Server Information ===")
	if err := PrintJSON(r.out, info.Raw); err != nil {
		r.reportError(err)
	}
}

// tools returns the cached catalogue, fetching it when empty.
func (r *REPL) tools(ctx context.Context) ([]mcp.ToolDescriptor, error) {
	if tools := r.client.Tools(); len(tools) > 0 {
		return tools, nil
	}
	return r.client.ListTools(ctx)
}

func (r *REPL) quick(ctx context.Context) error {
	tools, err := r.tools(ctx)
	if err != nil {
		r.reportError(err)
		return nil
	}

	fmt.Fprintln(r.out, "\nSelect a tool:")
	for i, t := range tools {
		fmt.Fprintf(r.out, "%d. %s\n", i+1, t.Name)
	}
	fmt.Fprintln(r.out, "0. Cancel")

	choice, err := r.prompt("\nEnter number: ")
	if err != nil {
		return err
	}
	n, err := strconv.Atoi(choice)
	if err != nil || n == 0 {
		return nil
	}
	if n < 1 || n > len(tools) {
		fmt.Fprintln(r.out, "Invalid choice")
		return nil
	}
	return r.promptAndCall(ctx, tools[n-1].Name)
}

func (r *REPL) promptAndCall(ctx context.Context, toolName string) error {
	tools, err := r.tools(ctx)
	if err != nil {
		r.reportError(err)
		return nil
	}
	tool, err := toolfilter.Find(tools, toolName)
	if err != nil {
		fmt.Fprintf(r.out, "Tool not found: %s\n", strings.TrimPrefix(err.Error(), toolfilter.ErrNotFound.Error()+": "))
		return nil
	}

	params, err := schema.ExtractParams(tool.InputSchema.Raw)
	if err != nil {
		r.reportError(err)
		return nil
	}

	args := map[string]any{}
	if r.opts.Defaults != nil {
		maps.Copy(args, r.opts.Defaults(tool.Name))
	}

	if len(params) > 0 {
		fmt.Fprintln(r.out, "\nEnter parameters (press Enter for empty/default):")
	}
	for _, p := range params {
		preset, hasPreset := args[p.Name]
		label := fmt.Sprintf("%s (%s)", p.Label(), p.Hint())
		if hasPreset {
			label += fmt.Sprintf(" [%v]", preset)
		}

		value, err := r.prompt(label + ": ")
		if err != nil {
			return err
		}
		if value == "" && p.Required && !hasPreset {
			fmt.Fprintln(r.out, "Required parameter, please enter a value.")
			if value, err = r.prompt(p.Label() + ": "); err != nil {
				return err
			}
		}
		if value == "" {
			continue
		}

		v, err := schema.Coerce(p, value)
		if err != nil {
			failure.Fprintf(r.out, "Invalid value: %v\n", err)
			return nil
		}
		args[p.Name] = v
	}

	if !r.opts.SkipValidation {
		if err := schema.Validate(tool.InputSchema.Raw, args); err != nil {
			failure.Fprintf(r.out, "Error: %v\n", err)
			return nil
		}
	}

	heading.Fprintf(r.out, "\n=== Calling Tool: %s ===\n", tool.Name)
	fmt.Fprint(r.out, "Arguments: ")
	_ = PrintJSON(r.out, args)
	fmt.Fprintln(r.out)

	r.logger.Debug("calling tool", "tool", tool.Name)
	result, err := r.client.CallTool(ctx, tool.Name, args)
	if err != nil {
		r.reportError(err)
		return nil
	}
	fmt.Fprintln(r.out, "Result:")
	if err := PrintJSON(r.out, result); err != nil {
		r.reportError(err)
	}
	return nil
}

func (r *REPL) reportError(err error) {
	r.logger.Debug("command failed", "error", err)
	failure.Fprintf(r.out, "Error: %v\n", err)
}
