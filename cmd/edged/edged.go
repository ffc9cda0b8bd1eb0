package main

import (
	"log/slog"
	"os"

	"github.com/cruciblehq/edged/internal"
	"github.com/cruciblehq/edged/internal/cli"
	"github.com/cruciblehq/edged/internal/logging"
)

// main starts the edge container agent daemon. cli.Execute parses flags,
// reconfigures the default logger to match them, and dispatches to the
// selected subcommand; for "start" that blocks until a termination signal
// is received.
func main() {
	slog.SetDefault(bootstrapLogger())

	slog.Debug("edged is running",
		"pid", os.Getpid(),
		"cwd", cwd(),
		"args", os.Args,
	)

	if err := cli.Execute(); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}

// bootstrapLogger seeds the default logger from build-time linker flags,
// before any CLI flags have been parsed. cli.Execute replaces it once flags
// are available.
func bootstrapLogger() *slog.Logger {
	handler := logging.New(os.Stderr, false)
	handler.SetLevel(logLevel())
	return slog.New(handler)
}

func logLevel() slog.Level {
	if internal.IsDebug() {
		return slog.LevelDebug
	}
	if internal.IsQuiet() {
		return slog.LevelWarn
	}
	return slog.LevelInfo
}

func cwd() string {
	dir, err := os.Getwd()
	if err != nil {
		return "(unknown)"
	}
	return dir
}
