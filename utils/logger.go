package utils

import (
	"log/slog"
	"os"
)

// NewLogger builds the process-wide slog logger. JSON in production so the
// output is ingestible, text locally so it is readable.
func NewLogger(env string) *slog.Logger {
	var handler slog.Handler
	if env == "debug" || env == "development" {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	return slog.New(handler).With("service", "tableside")
}
