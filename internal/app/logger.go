package app

import (
	"log/slog"
	"os"
)

// NewLogger builds the process-wide slog logger shared by the API server and
// the worker. JSON output is opt-in via LOG_FORMAT; the text handler is the
// development default.
func NewLogger(cfg *Config) *slog.Logger {
	if cfg != nil && cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{AddSource: true}))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{AddSource: true}))
}
