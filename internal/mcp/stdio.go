package mcp

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// StdioTransport talks to an MCP server running as a child process. Requests
// go to the child's stdin; responses are read from its stdout. stderr is not
// part of the protocol and is copied to the debug log.
type StdioTransport struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *os.File
	stderr io.ReadCloser
	pump   *pumpReader
	logger *slog.Logger

	closeOnce sync.Once
	stderrWG  sync.WaitGroup
}

func (e ProcessEndpoint) open(_ context.Context, logger *slog.Logger) (Transport, error) {
	return StartProcess(e, logger)
}

// StartProcess spawns the endpoint's command with redirected standard
// streams. The process outlives any context; it is only stopped by Close.
func StartProcess(e ProcessEndpoint, logger *slog.Logger) (*StdioTransport, error) {
	if e.Command == "" {
		return nil, fmt.Errorf("%w: process command is empty", ErrConnect)
	}
	if logger == nil {
		logger = slog.Default()
	}

	cmd := exec.Command(e.Command, e.argv()...)
	cmd.Env = mergeEnv(os.Environ(), e.Env)
	cmd.Dir = e.Dir

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: stdin pipe: %w", ErrConnect, err)
	}

	// stdout is an os.Pipe rather than cmd.StdoutPipe so the read end stays
	// under our control and supports read deadlines.
	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		stdin.Close()
		return nil, fmt.Errorf("%w: stdout pipe: %w", ErrConnect, err)
	}
	cmd.Stdout = stdoutW

	stderr, err := cmd.StderrPipe()
	if err != nil {
		stdin.Close()
		stdoutR.Close()
		stdoutW.Close()
		return nil, fmt.Errorf("%w: stderr pipe: %w", ErrConnect, err)
	}

	logger.Info("starting MCP server process", "command", e.Command, "args", e.argv())

	if err := cmd.Start(); err != nil {
		stdin.Close()
		stdoutR.Close()
		stdoutW.Close()
		stderr.Close()
		return nil, fmt.Errorf("%w: start %s: %w", ErrConnect, e.Command, err)
	}
	// The child holds its own copy of the write end.
	stdoutW.Close()

	t := &StdioTransport{
		cmd:    cmd,
		stdin:  stdin,
		stdout: stdoutR,
		stderr: stderr,
		logger: logger,
	}
	if err := stdoutR.SetReadDeadline(time.Time{}); errors.Is(err, os.ErrNoDeadline) {
		t.pump = newPumpReader(stdoutR)
	}

	t.stderrWG.Add(1)
	go t.drainStderr()

	logger.Info("MCP server process started", "pid", cmd.Process.Pid)
	return t, nil
}

// drainStderr logs the child's stderr line by line.
func (t *StdioTransport) drainStderr() {
	defer t.stderrWG.Done()
	scanner := bufio.NewScanner(t.stderr)
	scanner.Buffer(make([]byte, 0, 64*1024), 256*1024)
	for scanner.Scan() {
		t.logger.Debug("MCP server stderr", "line", scanner.Text())
	}
}

// WriteLine writes p to the child's stdin.
func (t *StdioTransport) WriteLine(p []byte) error {
	if _, err := t.stdin.Write(p); err != nil {
		return fmt.Errorf("%w: write to process stdin: %w", ErrWrite, err)
	}
	return nil
}

// ReadAvailable returns the stdout bytes that arrive within wait.
func (t *StdioTransport) ReadAvailable(wait time.Duration) ([]byte, error) {
	if t.pump != nil {
		return t.pump.readWithin(wait)
	}
	return readWithin(t.stdout, wait)
}

// Pid returns the child's process id.
func (t *StdioTransport) Pid() int {
	return t.cmd.Process.Pid
}

// Close closes the three streams, kills the child and reaps it.
func (t *StdioTransport) Close() error {
	t.closeOnce.Do(func() {
		pid := t.cmd.Process.Pid
		t.logger.Info("stopping MCP server process", "pid", pid)

		_ = t.stdin.Close()
		_ = t.stdout.Close()
		_ = t.cmd.Process.Kill()

		// Wait closes the stderr pipe, which ends drainStderr.
		err := t.cmd.Wait()
		t.stderrWG.Wait()
		t.logger.Debug("MCP server process exited", "pid", pid, "status", err)
	})
	return nil
}

// mergeEnv merges base environment entries with overrides. An override
// replaces a base entry with the same key; order of first appearance is
// preserved.
func mergeEnv(base, overrides []string) []string {
	if len(overrides) == 0 {
		return base
	}
	values := make(map[string]string, len(base)+len(overrides))
	order := make([]string, 0, len(base)+len(overrides))

	for _, entries := range [][]string{base, overrides} {
		for _, entry := range entries {
			key, _, ok := strings.Cut(entry, "=")
			if !ok {
				continue
			}
			if _, seen := values[key]; !seen {
				order = append(order, key)
			}
			values[key] = entry
		}
	}

	merged := make([]string, 0, len(order))
	for _, key := range order {
		merged = append(merged, values[key])
	}
	return merged
}
