package app

import (
	"io"
	"log/slog"
	"strings"
)

// parseLevel maps a --log-level value to a slog level. Unknown or empty
// values fall back to info; NewConfig rejects them before this point.
func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return slog.LevelInfo
	}
	return level
}

// newLogger builds the run's logger. Debug logs include the source position.
// It never touches slog.Default, so tests can run apps side by side.
func newLogger(levelStr, formatStr string, w io.Writer) *slog.Logger {
	level := parseLevel(levelStr)
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level <= slog.LevelDebug,
	}

	var handler slog.Handler
	switch formatStr {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler).With("app", "stagegrid")
}
