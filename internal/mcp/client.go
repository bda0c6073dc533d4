package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Default client identity sent during the handshake.
const (
	DefaultClientName    = "mcpclient"
	DefaultClientVersion = "1.0.0"
)

// Config describes how to reach a server and how to identify to it. A
// Config is copied when a Client is built and not modified afterwards.
type Config struct {
	Endpoint        Endpoint
	ResponseTimeout time.Duration
	ProtocolVersion string
	ClientName      string
	ClientVersion   string
	Logger          *slog.Logger
}

// Validate reports configuration problems that would make Connect fail.
func (c Config) Validate() error {
	switch e := c.Endpoint.(type) {
	case nil:
		return errors.New("mcp: endpoint is required")
	case ProcessEndpoint:
		if e.Command == "" {
			return errors.New("mcp: process endpoint needs a command")
		}
	case *ProcessEndpoint:
		if e == nil || e.Command == "" {
			return errors.New("mcp: process endpoint needs a command")
		}
	case SocketEndpoint:
		if e.Host == "" || e.Port == 0 {
			return errors.New("mcp: socket endpoint needs host and port")
		}
	case *SocketEndpoint:
		if e == nil || e.Host == "" || e.Port == 0 {
			return errors.New("mcp: socket endpoint needs host and port")
		}
	}
	if c.ResponseTimeout < 0 {
		return fmt.Errorf("mcp: negative response timeout %s", c.ResponseTimeout)
	}
	return nil
}

func (c Config) withDefaults() Config {
	if c.ResponseTimeout == 0 {
		c.ResponseTimeout = DefaultResponseTimeout
	}
	if c.ProtocolVersion == "" {
		c.ProtocolVersion = DefaultProtocolVersion
	}
	if c.ClientName == "" {
		c.ClientName = DefaultClientName
	}
	if c.ClientVersion == "" {
		c.ClientVersion = DefaultClientVersion
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// State is the lifecycle state of a Client.
type State int

const (
	StateDisconnected State = iota
	StateConnected
	StateInitialized
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnected:
		return "connected"
	case StateInitialized:
		return "initialized"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Client is the entry point for talking to one MCP server. It moves from
// disconnected to connected on Connect, to initialized on Initialize, and
// back to disconnected on Disconnect.
//
// Calls are serialized by an internal mutex; the protocol allows a single
// outstanding request per connection.
type Client struct {
	cfg    Config
	logger *slog.Logger
	dial   func(ctx context.Context) (Transport, error)

	mu      sync.Mutex
	session *Session
}

// NewClient returns a disconnected client for cfg.
func NewClient(cfg Config) *Client {
	cfg = cfg.withDefaults()
	logger := cfg.Logger
	if cfg.Endpoint != nil {
		logger = logger.With("endpoint", cfg.Endpoint.String())
	}
	c := &Client{cfg: cfg, logger: logger}
	c.dial = func(ctx context.Context) (Transport, error) {
		return Open(ctx, c.cfg.Endpoint, c.logger)
	}
	return c
}

// NewClientWithTransport returns a client whose Connect uses dial instead of
// the configured endpoint. It exists for callers that manage connections
// themselves, such as tests and in-process servers.
func NewClientWithTransport(cfg Config, dial func(ctx context.Context) (Transport, error)) *Client {
	c := NewClient(cfg)
	c.dial = dial
	return c
}

// State returns the current lifecycle state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

func (c *Client) stateLocked() State {
	switch {
	case c.session == nil:
		return StateDisconnected
	case c.session.Initialized():
		return StateInitialized
	default:
		return StateConnected
	}
}

// Connect opens the transport. Calling Connect on a connected client is a
// no-op. On failure the client stays disconnected and the error wraps
// ErrConnect.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session != nil {
		return nil
	}
	if err := c.cfg.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrConnect, err)
	}

	t, err := c.dial(ctx)
	if err != nil {
		if !errors.Is(err, ErrConnect) {
			err = fmt.Errorf("%w: %w", ErrConnect, err)
		}
		return err
	}
	c.session = NewSession(t, SessionOptions{
		ProtocolVersion: c.cfg.ProtocolVersion,
		ClientName:      c.cfg.ClientName,
		ClientVersion:   c.cfg.ClientVersion,
		ResponseTimeout: c.cfg.ResponseTimeout,
		Logger:          c.logger,
	})
	return nil
}

// Initialize performs the handshake, or returns the cached result when it
// already succeeded.
func (c *Client) Initialize(ctx context.Context) (ServerInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		return ServerInfo{}, fmt.Errorf("%s: %w", MethodInitialize, ErrNotConnected)
	}
	return c.session.Initialize(ctx)
}

// ConnectAndInitialize connects and performs the handshake. If the
// handshake fails the transport is released before returning.
func (c *Client) ConnectAndInitialize(ctx context.Context) (ServerInfo, error) {
	if err := c.Connect(ctx); err != nil {
		return ServerInfo{}, err
	}
	info, err := c.Initialize(ctx)
	if err != nil && c.State() != StateInitialized {
		c.Disconnect()
		return ServerInfo{}, err
	}
	return info, err
}

// ListTools fetches the server's tool catalog.
func (c *Client) ListTools(ctx context.Context) ([]ToolDescriptor, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		return nil, fmt.Errorf("%s: %w", MethodToolsList, ErrNotConnected)
	}
	return c.session.ListTools(ctx)
}

// CallTool invokes the named tool with args. See Session.CallTool for how
// results are interpreted.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]any) (any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		return nil, fmt.Errorf("%s: %w", MethodToolsCall, ErrNotConnected)
	}
	return c.session.CallTool(ctx, name, args)
}

// ServerInfo returns the cached handshake result, if any.
func (c *Client) ServerInfo() (ServerInfo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil || !c.session.Initialized() {
		return ServerInfo{}, false
	}
	return c.session.ServerInfo(), true
}

// Tools returns the catalog cached by the last successful ListTools.
func (c *Client) Tools() []ToolDescriptor {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		return nil
	}
	return c.session.Tools()
}

// Endpoint returns the configured endpoint.
func (c *Client) Endpoint() Endpoint {
	return c.cfg.Endpoint
}

// Disconnect releases the transport. It never fails and may be called any
// number of times, including before Connect.
func (c *Client) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		return
	}
	CloseTransport(c.session.transport, c.logger)
	c.session = nil
	c.logger.Info("disconnected from MCP server")
}

// Close disconnects and always returns nil. It lets a Client be released
// with defer like any io.Closer.
func (c *Client) Close() error {
	c.Disconnect()
	return nil
}
