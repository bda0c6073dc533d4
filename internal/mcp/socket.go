package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"
)

// SocketTransport talks to an MCP server over a TCP connection.
type SocketTransport struct {
	conn   net.Conn
	logger *slog.Logger

	closeOnce sync.Once
	closeErr  error
}

func (e SocketEndpoint) open(ctx context.Context, logger *slog.Logger) (Transport, error) {
	return DialSocket(ctx, e, logger)
}

// DialSocket connects to the endpoint within its ConnectTimeout.
func DialSocket(ctx context.Context, e SocketEndpoint, logger *slog.Logger) (*SocketTransport, error) {
	if e.Host == "" || e.Port == 0 {
		return nil, fmt.Errorf("%w: socket endpoint needs host and port", ErrConnect)
	}
	if logger == nil {
		logger = slog.Default()
	}
	timeout := e.ConnectTimeout
	if timeout <= 0 {
		timeout = defaultConnectTimeout
	}

	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "tcp", e.Address())
	if err != nil {
		return nil, fmt.Errorf("%w: failed to connect to socket %s: %w", ErrConnect, e.Address(), err)
	}
	logger.Info("connected to MCP server", "address", conn.RemoteAddr().String())
	return NewSocketTransport(conn, logger), nil
}

// NewSocketTransport wraps an established connection.
func NewSocketTransport(conn net.Conn, logger *slog.Logger) *SocketTransport {
	if logger == nil {
		logger = slog.Default()
	}
	return &SocketTransport{conn: conn, logger: logger}
}

// WriteLine writes p to the connection.
func (t *SocketTransport) WriteLine(p []byte) error {
	if _, err := t.conn.Write(p); err != nil {
		return fmt.Errorf("%w: write to socket: %w", ErrWrite, err)
	}
	return nil
}

// ReadAvailable returns the bytes that arrive within wait.
func (t *SocketTransport) ReadAvailable(wait time.Duration) ([]byte, error) {
	return readWithin(t.conn, wait)
}

// Close closes the connection.
func (t *SocketTransport) Close() error {
	t.closeOnce.Do(func() {
		t.closeErr = t.conn.Close()
		t.logger.Debug("closed MCP socket", "address", t.conn.RemoteAddr().String())
	})
	return t.closeErr
}
