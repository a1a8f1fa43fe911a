package main

import (
	"log/slog"
	"os"

	"github.com/c360/logstream/config"
)

// setupLogger builds the process logger from the logging configuration and
// installs it as the slog default. Output goes to stderr: stdout belongs to
// the log data the subcommands emit.
func setupLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	logger := slog.New(handler).With(
		"service", appName,
		"version", Version,
		"pid", os.Getpid(),
	)

	slog.SetDefault(logger)
	return logger
}
