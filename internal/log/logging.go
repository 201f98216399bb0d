// Package log builds the daemon's slog.Logger.
//
// Everything goes to stderr as text so a journald unit captures it
// unchanged; there is no file sink because the daemon is expected to run
// under systemd or in a foreground terminal.
package log

import (
	"log/slog"
	"os"
)

// ParseLevel maps a config/flag level string to a slog.Level. Unknown
// strings fall back to info rather than failing: the log level is never
// worth refusing to start over.
func ParseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "info", "":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Setup returns a text logger at the given level.
func Setup(level string) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: ParseLevel(level),
	}))
}
