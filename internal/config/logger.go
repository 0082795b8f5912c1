package config

import (
	"io"
	"log/slog"
)

// NewLogger builds the logger behind the WithLogOutput option. The solver
// logs plan construction and per-block progress at debug, each SolveModel
// call at info, and short datasets or unconverged blocks at warn. format "json"
// selects the JSON handler, anything else the text handler. The global
// slog logger is left untouched.
func NewLogger(level, format string, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// parseLevel accepts slog level names in any case ("debug", "WARN", "info+2").
// Unknown names log at info.
func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// DiscardLogger is the model's logger when no option or context supplies one.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
