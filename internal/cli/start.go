package cli

import (
	"context"
	"log/slog"

	"github.com/cruciblehq/edged/internal/server"
)

// StartCmd is the 'edged start' command.
type StartCmd struct{}

// Run starts the RPC, admin, and metrics listeners and blocks until the
// context is cancelled (e.g. via SIGINT or SIGTERM).
func (c *StartCmd) Run(ctx context.Context) error {
	srv, err := server.New(server.Config{
		ListenAddr:          RootCmd.Listen,
		AdminSocketPath:     RootCmd.AdminSocket,
		MetricsAddr:         RootCmd.MetricsAddr,
		ContainerdAddress:   RootCmd.ContainerdAddress,
		ContainerdNamespace: RootCmd.ContainerdNamespace,
		DockerHost:          RootCmd.DockerHost,
	})
	if err != nil {
		return err
	}

	if err := srv.Start(); err != nil {
		return err
	}

	slog.Info("edged is running")

	<-ctx.Done()

	slog.Info("shutting down")
	return srv.Stop()
}
