package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// setupLogger builds the process logger. Logs go to w, which is stderr in
// normal use, so they never mix with command output.
func setupLogger(level, format string, w io.Writer) (*slog.Logger, error) {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn", "warning":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		return nil, fmt.Errorf("invalid --log-level %q (debug, info, warn, error)", level)
	}

	opts := &slog.HandlerOptions{Level: logLevel}
	switch strings.ToLower(format) {
	case "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("invalid --log-format %q (text, json)", format)
	}
}
