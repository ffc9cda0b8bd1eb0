package server

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/user"
	"strconv"
	"sync"
	"time"

	containerd "github.com/containerd/containerd/v2/client"

	"github.com/cruciblehq/edged/internal"
	"github.com/cruciblehq/edged/internal/agenterr"
	"github.com/cruciblehq/edged/internal/content"
	"github.com/cruciblehq/edged/internal/dockerrt"
	"github.com/cruciblehq/edged/internal/layered"
	"github.com/cruciblehq/edged/internal/metrics"
	"github.com/cruciblehq/edged/internal/ocibuilder"
	"github.com/cruciblehq/edged/internal/orchestrator"
	"github.com/cruciblehq/edged/internal/paths"
	"github.com/cruciblehq/edged/internal/restartsupervisor"
	"github.com/cruciblehq/edged/internal/snapshot"
)

// Server runs the daemon's three listeners (deploy RPC over TCP, admin
// commands over a Unix socket, metrics/health over HTTP) against one
// containerd-backed orchestrator.
type Server struct {
	cfg Config

	containerdClient *containerd.Client
	dockerRuntime    *dockerrt.Runtime // nil if the fallback is unavailable
	orch             *orchestrator.Orchestrator
	layeredHandler   *layered.Handler
	supervisor       restartsupervisor.Supervisor
	version          string

	rpcListener   net.Listener
	adminListener net.Listener
	metricsServer *http.Server

	startedAt time.Time
	done      chan struct{}
	closeOnce sync.Once
}

// New connects to containerd (and, best-effort, a Docker fallback daemon)
// and assembles the orchestrator, but opens no listeners; call Start for
// that.
func New(cfg Config) (*Server, error) {
	client, err := containerd.New(cfg.containerdAddress(), containerd.WithDefaultNamespace(cfg.containerdNamespace()))
	if err != nil {
		return nil, agenterr.Wrap(ErrServer, err)
	}

	contentClient := content.New(client.ContentStore())
	snapshots := snapshot.New(client.SnapshotService(orchestrator.SnapshotterName), client.DiffService())
	orch := orchestrator.New(client, contentClient, snapshots)

	var dockerRuntime *dockerrt.Runtime
	if rt, err := dockerrt.New(cfg.DockerHost); err != nil {
		slog.Warn("docker fallback runtime unavailable", "error", err)
		metrics.UpdateComponent("docker", false, err.Error())
	} else {
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := rt.Ping(pingCtx)
		cancel()
		if err != nil {
			slog.Warn("docker fallback runtime unreachable", "error", err)
			metrics.UpdateComponent("docker", false, err.Error())
			rt.Close()
		} else {
			dockerRuntime = rt
			metrics.UpdateComponent("docker", true, "")
		}
	}

	if err := ocibuilder.VerifyCgroupDriver(); err != nil {
		slog.Warn("host cgroup hierarchy check failed", "error", err)
	}

	metrics.UpdateComponent("containerd", true, "")
	metrics.SetVersion(internal.VersionString())

	return &Server{
		cfg:              cfg,
		containerdClient: client,
		dockerRuntime:    dockerRuntime,
		orch:             orch,
		layeredHandler:   layered.NewHandler(orch),
		supervisor:       restartsupervisor.NewExitSupervisor(),
		version:          internal.VersionString(),
		done:             make(chan struct{}),
	}, nil
}

// Start opens every listener and begins accepting connections. It returns
// once the RPC and admin listeners are bound; the metrics HTTP server binds
// in a background goroutine, where a bind failure is logged rather than
// returned. Serving happens in background goroutines.
func (s *Server) Start() error {
	rpcListener, err := net.Listen("tcp", s.cfg.listenAddr())
	if err != nil {
		return agenterr.Wrapf(ErrServer, "failed to listen on %s: %s", s.cfg.listenAddr(), err)
	}
	s.rpcListener = rpcListener

	adminListener, err := listenAdmin(s.cfg.adminSocketPath())
	if err != nil {
		rpcListener.Close()
		return err
	}
	s.adminListener = adminListener

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.Handle("/healthz", metrics.HealthHandler())
	mux.Handle("/readyz", metrics.ReadyHandler())
	s.metricsServer = &http.Server{Addr: s.cfg.metricsAddr(), Handler: mux}

	s.startedAt = time.Now()

	if err := writePID(); err != nil {
		slog.Warn("failed to write PID file", "error", err)
	}

	go s.acceptRPC()
	go s.acceptAdmin()
	go func() {
		if err := s.metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics server error", "error", err)
		}
	}()

	slog.Info("server listening",
		"rpc", s.cfg.listenAddr(),
		"admin", s.cfg.adminSocketPath(),
		"metrics", s.cfg.metricsAddr(),
	)
	return nil
}

// Stop closes every listener and the containerd/Docker clients. Safe to
// call more than once.
func (s *Server) Stop() error {
	s.closeOnce.Do(func() {
		close(s.done)
	})

	if s.rpcListener != nil {
		s.rpcListener.Close()
	}
	if s.adminListener != nil {
		s.adminListener.Close()
	}
	if s.metricsServer != nil {
		s.metricsServer.Close()
	}
	if s.dockerRuntime != nil {
		s.dockerRuntime.Close()
	}
	if s.containerdClient != nil {
		s.containerdClient.Close()
	}

	os.Remove(s.cfg.adminSocketPath())
	os.Remove(paths.PIDFile())
	return nil
}

// Wait blocks until Stop is called.
func (s *Server) Wait() {
	<-s.done
}

func (s *Server) acceptRPC() {
	for {
		conn, err := s.rpcListener.Accept()
		if err != nil {
			select {
			case <-s.done:
				return
			default:
				slog.Error("rpc accept error", "error", err)
				continue
			}
		}
		go s.handleRPC(conn)
	}
}

// listenAdmin creates the admin Unix socket listener, removing any stale
// socket from a previous run and restricting it to owner and group access.
func listenAdmin(socketPath string) (net.Listener, error) {
	if err := os.MkdirAll(paths.Runtime(), paths.DefaultDirMode); err != nil {
		return nil, agenterr.Wrap(ErrServer, err)
	}

	os.Remove(socketPath)

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return nil, agenterr.Wrapf(ErrServer, "failed to listen on %s: %s", socketPath, err)
	}

	if err := setSocketPermissions(socketPath); err != nil {
		listener.Close()
		return nil, err
	}

	return listener, nil
}

func setSocketPermissions(socketPath string) error {
	if err := os.Chmod(socketPath, socketMode); err != nil {
		return agenterr.Wrapf(ErrServer, "failed to chmod socket %s: %s", socketPath, err)
	}

	if g, err := user.LookupGroup(socketGroup); err == nil {
		if gid, err := strconv.Atoi(g.Gid); err == nil {
			if err := os.Chown(socketPath, -1, gid); err != nil {
				slog.Warn("failed to chgrp admin socket", "group", socketGroup, "error", err)
			}
		}
	} else {
		slog.Warn("admin socket group not found, socket accessible to owner only", "group", socketGroup)
	}

	return nil
}

func writePID() error {
	if err := os.MkdirAll(paths.Runtime(), paths.DefaultDirMode); err != nil {
		return err
	}
	return os.WriteFile(paths.PIDFile(), []byte(strconv.Itoa(os.Getpid())), paths.DefaultFileMode)
}
