package server

import "github.com/cruciblehq/edged/internal/paths"

const (
	// DefaultListenAddr is the TCP address the deploy-facing RPC surface
	// binds when Config.ListenAddr is empty.
	DefaultListenAddr = ":7777"

	// DefaultMetricsAddr is the HTTP address the metrics/health server
	// binds when Config.MetricsAddr is empty.
	DefaultMetricsAddr = ":9090"

	// DefaultContainerdAddress is the containerd socket the orchestrator
	// dials when Config.ContainerdAddress is empty.
	DefaultContainerdAddress = "/run/containerd/containerd.sock"

	// DefaultContainerdNamespace scopes every image and container the
	// daemon creates, keeping them out of the way of any other tenant
	// (nerdctl, a CI runner) sharing the same containerd socket.
	DefaultContainerdNamespace = "edged"

	// socketGroup grants socket access to a group without requiring the
	// daemon to run as root or callers to own the process.
	socketGroup = "edged"

	// socketMode restricts the admin Unix socket to owner and group.
	socketMode = 0660
)

// Config holds everything Server.New needs to bind the daemon's listeners
// and backing clients. Every field has a default applied by New when left
// zero.
type Config struct {
	// ListenAddr is the TCP address the deploy RPC surface binds.
	ListenAddr string

	// AdminSocketPath overrides the Unix admin socket path. Empty uses
	// paths.AdminSocket().
	AdminSocketPath string

	// MetricsAddr is the HTTP address serving /metrics, /healthz, and
	// /readyz.
	MetricsAddr string

	// ContainerdAddress is the containerd socket to dial. Empty uses
	// [DefaultContainerdAddress].
	ContainerdAddress string

	// ContainerdNamespace scopes every containerd resource the daemon
	// creates. Empty uses [DefaultContainerdNamespace].
	ContainerdNamespace string

	// DockerHost, if set, enables the Docker-engine fallback runtime used
	// by the legacy runContainer (non-layered) operation. Empty defers to
	// the standard DOCKER_HOST environment variable; if neither resolves
	// a reachable daemon, the fallback is simply unavailable and
	// runContainer requests fail with an error instead of the daemon
	// refusing to start.
	DockerHost string
}

func (c Config) listenAddr() string {
	if c.ListenAddr == "" {
		return DefaultListenAddr
	}
	return c.ListenAddr
}

func (c Config) adminSocketPath() string {
	if c.AdminSocketPath == "" {
		return paths.AdminSocket()
	}
	return c.AdminSocketPath
}

func (c Config) metricsAddr() string {
	if c.MetricsAddr == "" {
		return DefaultMetricsAddr
	}
	return c.MetricsAddr
}

func (c Config) containerdAddress() string {
	if c.ContainerdAddress == "" {
		return DefaultContainerdAddress
	}
	return c.ContainerdAddress
}

func (c Config) containerdNamespace() string {
	if c.ContainerdNamespace == "" {
		return DefaultContainerdNamespace
	}
	return c.ContainerdNamespace
}
