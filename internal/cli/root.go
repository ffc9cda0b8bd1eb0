package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/cruciblehq/edged/internal"
	"github.com/cruciblehq/edged/internal/logging"
)

// RootCmd is the root command for the edged daemon.
var RootCmd struct {
	Quiet   bool `short:"q" help:"Suppress informational output."`
	Verbose bool `short:"v" help:"Enable verbose output."`
	Debug   bool `short:"d" help:"Enable debug output."`

	Listen              string `help:"TCP address for the deploy RPC surface." placeholder:"ADDR"`
	AdminSocket         string `help:"Override the default Unix admin socket path." placeholder:"PATH"`
	ContainerdAddress   string `help:"Containerd socket address." placeholder:"ADDR"`
	ContainerdNamespace string `help:"Containerd namespace for images and containers." placeholder:"NAME"`
	DockerHost          string `help:"Docker engine API address for the run-container fallback." placeholder:"ADDR"`
	MetricsAddr         string `help:"HTTP address for /metrics, /healthz, and /readyz." placeholder:"ADDR"`

	Start   StartCmd   `cmd:"" help:"Start the daemon."`
	Version VersionCmd `cmd:"" help:"Show version information."`
}

// Execute parses arguments, configures logging, and runs the selected
// subcommand.
func Execute() error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	kongCtx := kong.Parse(&RootCmd,
		kong.Name(internal.Name),
		kong.Description("The edge container agent daemon.\n\nListens for deploy RPCs over TCP and admin commands over a Unix socket."),
		kong.UsageOnError(),
		kong.Vars{
			"version": internal.VersionString(),
		},
		kong.BindTo(ctx, (*context.Context)(nil)),
	)

	configureLogger()

	return kongCtx.Run()
}

// configureLogger installs a fresh logging.Handler on the default slog
// logger and sets its level from the parsed flags.
func configureLogger() {
	pretty := isatty(os.Stderr)
	handler := logging.New(os.Stderr, pretty)

	debug := RootCmd.Debug || internal.IsDebug()
	quiet := RootCmd.Quiet || internal.IsQuiet()

	switch {
	case debug:
		handler.SetLevel(slog.LevelDebug)
	case quiet:
		handler.SetLevel(slog.LevelWarn)
	default:
		handler.SetLevel(slog.LevelInfo)
	}

	slog.SetDefault(slog.New(handler))
}

// isatty reports whether f is an interactive terminal.
func isatty(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
