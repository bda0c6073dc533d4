package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"
)

// Transport is a byte-stream connection to an MCP server. Implementations
// are owned by a single session and are not safe for concurrent use.
type Transport interface {
	// WriteLine writes the full buffer. Failures wrap ErrWrite.
	WriteLine(p []byte) error

	// ReadAvailable returns the bytes that arrive within wait. It returns
	// an empty slice and a nil error when nothing arrived, and io.EOF once
	// the peer has closed its end of the stream.
	ReadAvailable(wait time.Duration) ([]byte, error)

	// Close releases all resources held by the transport. It is safe to
	// call more than once.
	Close() error
}

// Endpoint selects how to reach a server. It is either a ProcessEndpoint or
// a SocketEndpoint.
type Endpoint interface {
	// String describes the endpoint for logs and messages.
	String() string

	open(ctx context.Context, logger *slog.Logger) (Transport, error)
}

// ProcessEndpoint runs the server as a child process and talks to it over
// its standard streams.
type ProcessEndpoint struct {
	// Command is the executable to run, e.g. "php" or "node".
	Command string
	// Args are placed before Script on the command line.
	Args []string
	// Script is the server script handed to Command. Optional.
	Script string
	// Env holds KEY=VALUE overrides merged into the current environment.
	Env []string
	// Dir is the working directory. Empty means the current directory.
	Dir string
}

func (e ProcessEndpoint) argv() []string {
	args := append([]string(nil), e.Args...)
	if e.Script != "" {
		args = append(args, e.Script)
	}
	return args
}

func (e ProcessEndpoint) String() string {
	s := e.Command
	for _, a := range e.argv() {
		s += " " + a
	}
	return s
}

// defaultConnectTimeout applies when SocketEndpoint.ConnectTimeout is zero.
const defaultConnectTimeout = 30 * time.Second

// SocketEndpoint connects to a server listening on a TCP port.
type SocketEndpoint struct {
	Host           string
	Port           uint16
	ConnectTimeout time.Duration
}

// Address returns host:port.
func (e SocketEndpoint) Address() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(int(e.Port)))
}

func (e SocketEndpoint) String() string {
	return "tcp://" + e.Address()
}

// Open establishes a transport to the endpoint. Failures wrap ErrConnect.
func Open(ctx context.Context, endpoint Endpoint, logger *slog.Logger) (Transport, error) {
	if endpoint == nil {
		return nil, fmt.Errorf("%w: no endpoint configured", ErrConnect)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return endpoint.open(ctx, logger)
}

// CloseTransport closes t if it is non-nil. Close errors are logged and
// otherwise ignored.
func CloseTransport(t Transport, logger *slog.Logger) {
	if t == nil {
		return
	}
	if err := t.Close(); err != nil && logger != nil {
		logger.Debug("closing transport", "error", err)
	}
}
