package logger

import (
	"log/slog"
	"os"
)

// New returns the process-wide JSON logger used by the mobile entry point,
// where log lines are collected by the native shell.
func New(level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
}

// NewText returns a human-readable logger for the desktop dev shell.
func NewText(level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
}
