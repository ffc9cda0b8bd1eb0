package server

import (
	"context"
	"io"
	"log/slog"
	"net"

	digest "github.com/opencontainers/go-digest"

	"github.com/cruciblehq/edged/internal/agenterr"
	"github.com/cruciblehq/edged/internal/content"
	"github.com/cruciblehq/edged/internal/deploy"
	"github.com/cruciblehq/edged/internal/metrics"
	"github.com/cruciblehq/edged/internal/protocol"
	"github.com/cruciblehq/edged/internal/selfupdate"
	"github.com/cruciblehq/edged/internal/wire"
)

// handleRPC reads the connection's first envelope, whose Type names the
// operation, and dispatches the rest of the connection to the matching
// handler. Unary operations answer out of this function directly; streaming
// operations hand the raw connection to a dedicated per-stream handler.
func (s *Server) handleRPC(conn net.Conn) {
	defer conn.Close()

	env, err := wire.Decode(conn)
	if err != nil {
		if err != io.EOF {
			slog.Error("rpc read error", "error", err)
		}
		return
	}

	ctx := context.Background()

	switch env.Type {
	case protocol.OpRunContainer:
		s.runRunContainer(ctx, conn)

	case protocol.OpRunContainerLayered:
		s.runRunContainerLayered(ctx, conn, env)

	case protocol.OpStopContainer:
		s.runStopContainer(ctx, conn, env)

	case protocol.OpListContainers:
		s.runListContainers(ctx, conn)

	case protocol.OpListLayers:
		s.runListLayers(ctx, conn)

	case protocol.OpWriteLayer:
		s.runWriteLayer(ctx, conn)

	case protocol.OpSelfUpdate:
		s.runSelfUpdate(ctx, conn)

	case protocol.OpGetAgentVersion:
		s.runGetAgentVersion(conn)

	default:
		s.respondError(conn, agenterr.Invalid(ErrServer, "unknown operation %q", env.Type))
	}
}

// runRunContainer hands the connection to the Docker-fallback stream
// handler. Unavailable without a reachable Docker daemon.
func (s *Server) runRunContainer(ctx context.Context, conn net.Conn) {
	if s.dockerRuntime == nil {
		// a host condition, not bad client input, so this stays internalFailure.
		s.respondError(conn, agenterr.Wrapf(ErrServer, "docker fallback runtime is not available"))
		return
	}

	h := deploy.NewHandler(s.dockerRuntime)
	if err := h.Run(ctx, conn); err != nil {
		slog.Error("runContainer stream ended in error", "error", err)
	}
}

// runRunContainerLayered answers the containerd-backed deploy in a single
// request/response exchange: the request is the dispatch envelope's own
// payload.
func (s *Server) runRunContainerLayered(ctx context.Context, conn net.Conn, env wire.Envelope) {
	req, err := wire.DecodePayload[protocol.RunContainerLayeredRequest](env)
	if err != nil {
		s.respondError(conn, agenterr.Wrap(ErrServer, err))
		return
	}

	timer := metrics.NewTimer()
	outcome := "success"
	if err := s.layeredHandler.RunContainerLayered(ctx, req); err != nil {
		outcome = "failure"
		metrics.DeploysTotal.WithLabelValues(req.AppName, outcome).Inc()
		timer.ObserveDuration(metrics.DeployDuration)
		s.respondError(conn, err)
		return
	}
	metrics.DeploysTotal.WithLabelValues(req.AppName, outcome).Inc()
	timer.ObserveDuration(metrics.DeployDuration)

	s.respondResult(conn, protocol.EventPayload{State: "containerStarted"})
}

func (s *Server) runStopContainer(ctx context.Context, conn net.Conn, env wire.Envelope) {
	req, err := wire.DecodePayload[protocol.StopContainerRequest](env)
	if err != nil {
		s.respondError(conn, agenterr.Wrap(ErrServer, err))
		return
	}
	if req.AppName == "" {
		s.respondError(conn, agenterr.Invalid(ErrServer, "appName must not be empty"))
		return
	}

	if err := s.orch.Stop(ctx, req.AppName); err != nil {
		s.respondError(conn, err)
		return
	}
	s.respondResult(conn, protocol.StopContainerResponse{})
}

func (s *Server) runListContainers(ctx context.Context, conn net.Conn) {
	statuses, err := s.orch.List(ctx)
	if err != nil {
		s.respondError(conn, err)
		return
	}

	running := 0
	wireStatuses := make([]protocol.ContainerStatusWire, len(statuses))
	for i, st := range statuses {
		wireStatuses[i] = protocol.ContainerStatusWire{
			AppName:      st.AppName,
			AppVersion:   st.AppVersion,
			RunningState: string(st.RunningState),
			FailureCount: st.FailureCount,
		}
		if st.RunningState == "running" {
			running++
		}
	}
	metrics.ContainersRunning.Set(float64(running))

	s.respondResult(conn, protocol.ListContainersResponse{Containers: wireStatuses})
}

func (s *Server) runListLayers(ctx context.Context, conn net.Conn) {
	blobs, err := s.orch.Content().ListContent(ctx)
	if err != nil {
		s.respondError(conn, err)
		return
	}

	out := make([]protocol.BlobWire, len(blobs))
	for i, b := range blobs {
		out[i] = protocol.BlobWire{Digest: b.Digest.String(), Size: b.Size}
	}
	s.respondResult(conn, protocol.ListLayersResponse{Layers: out})
}

// runWriteLayer reads a WriteLayerHeader frame, then chunk frames, then a
// terminating control.commit frame, streaming each chunk straight into the
// content store as it arrives.
func (s *Server) runWriteLayer(ctx context.Context, conn net.Conn) {
	env, err := wire.Decode(conn)
	if err != nil {
		return
	}
	if env.Type != protocol.TypeHeader {
		s.respondError(conn, agenterr.Invalid(ErrServer, "expected header, got %q", env.Type))
		return
	}

	hdr, err := wire.DecodePayload[protocol.WriteLayerHeader](env)
	if err != nil {
		s.respondError(conn, agenterr.Wrap(ErrServer, err))
		return
	}

	expected, err := digest.Parse(hdr.Digest)
	if err != nil {
		s.respondError(conn, agenterr.Wrap(ErrServer, err))
		return
	}

	chunks := make(chan content.Chunk, 1)
	writeErrCh := make(chan error, 1)
	go func() {
		writeErrCh <- s.orch.Content().WriteLayer(ctx, hdr.Digest, expected, hdr.Size, chunks)
	}()

	var offset int64
	for {
		env, err := wire.Decode(conn)
		if err != nil {
			close(chunks)
			return
		}

		switch env.Type {
		case protocol.TypeChunk:
			chunk, err := wire.DecodePayload[protocol.ChunkPayload](env)
			if err != nil {
				close(chunks)
				s.respondError(conn, agenterr.Wrap(ErrServer, err))
				return
			}
			chunks <- content.Chunk{Offset: offset, Data: chunk.Data}
			offset += int64(len(chunk.Data))

		case protocol.TypeControl:
			ctrl, err := wire.DecodePayload[protocol.ControlPayload](env)
			if err != nil {
				close(chunks)
				s.respondError(conn, agenterr.Wrap(ErrServer, err))
				return
			}
			if ctrl.Action != protocol.ControlCommit {
				close(chunks)
				s.respondError(conn, agenterr.Invalid(ErrServer, "unknown control action %q", ctrl.Action))
				return
			}
			close(chunks)
			if err := <-writeErrCh; err != nil {
				s.respondError(conn, agenterr.Wrap(ErrServer, err))
				return
			}
			metrics.LayersUploadedTotal.Inc()
			s.respondResult(conn, protocol.WriteLayerResponse{Digest: hdr.Digest})
			return

		default:
			close(chunks)
			s.respondError(conn, agenterr.Invalid(ErrServer, "unexpected message %q", env.Type))
			return
		}
	}
}

func (s *Server) runSelfUpdate(ctx context.Context, conn net.Conn) {
	outcome := "success"
	h := selfupdate.NewHandler(s.supervisor, "")
	if err := h.Run(ctx, conn); err != nil {
		outcome = "failure"
		slog.Error("self-update stream ended in error", "error", err)
	}
	metrics.SelfUpdatesTotal.WithLabelValues(outcome).Inc()
}

func (s *Server) runGetAgentVersion(conn net.Conn) {
	s.respondResult(conn, protocol.AgentVersionResponse{Version: s.version})
}

func (s *Server) respondResult(conn net.Conn, payload any) {
	if err := wire.Encode(conn, protocol.TypeResult, payload); err != nil {
		slog.Error("failed to write rpc result", "error", err)
	}
}

func (s *Server) respondError(conn net.Conn, err error) {
	slog.Error("rpc request failed", "error", err)
	_ = wire.Encode(conn, protocol.TypeError, protocol.ErrorPayload{
		Code:    agenterr.Code(err),
		Message: err.Error(),
	})
}
