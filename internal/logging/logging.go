// Package logging installs the process-wide slog logger. All engine
// packages log through slog's default; only the CLI entry point calls
// Configure.
package logging

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// Configure sets a text handler on stderr at the given level.
// Accepted levels are debug, info, warn, and error; empty means info.
func Configure(level string) error {
	var parsed slog.Level
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "info":
		parsed = slog.LevelInfo
	case "debug":
		parsed = slog.LevelDebug
	case "warn":
		parsed = slog.LevelWarn
	case "error":
		parsed = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q", level)
	}

	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parsed})
	slog.SetDefault(slog.New(h))
	return nil
}
