package main

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/kleeedolinux/legacyio/config"
	"github.com/kleeedolinux/legacyio/debug"
)

// loadConfig reads the environment and applies the flags that were set.
func loadConfig(cmd *cobra.Command, flags *rootFlags) (*config.Config, error) {
	cfg, err := config.LoadFiles(flags.envFile)
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("origin") {
		cfg.Origin = flags.origin
	}
	if cmd.Flags().Changed("namespace") {
		cfg.Namespace = flags.namespace
	}
	if flags.debug {
		debug.Enable()
	}
	return cfg, nil
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// newLogger builds the process logger and installs it as the slog default.
func newLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}
	var handler slog.Handler
	switch cfg.LogFormat {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		handler = slog.NewTextHandler(w, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}
