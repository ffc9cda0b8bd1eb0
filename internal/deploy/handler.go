package deploy

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/cruciblehq/edged/internal/agenterr"
	"github.com/cruciblehq/edged/internal/dockerrt"
	"github.com/cruciblehq/edged/internal/entitlements"
	"github.com/cruciblehq/edged/internal/imagename"
	"github.com/cruciblehq/edged/internal/ocibuilder"
	"github.com/cruciblehq/edged/internal/protocol"
	"github.com/cruciblehq/edged/internal/restartpolicy"
	"github.com/cruciblehq/edged/internal/wire"
)

// debugPort is where the Docker path starts its gdbserver stand-in for
// debug deploys.
const debugPort = 4242

type state int

const (
	waitingForHeader state = iota
	acceptingChunks
	running
)

// Handler drives one run-container stream end to end. It is not safe for
// concurrent use; one stream, one Handler.
type Handler struct {
	runtime *dockerrt.Runtime

	state state

	imageName string
	appConfig []byte

	tmpPath string
	tmpFile *os.File

	containerName string
}

// NewHandler binds a Handler to the Docker-fallback runtime.
func NewHandler(rt *dockerrt.Runtime) *Handler {
	return &Handler{runtime: rt, state: waitingForHeader}
}

// conn is the minimal surface Run needs: a framed reader/writer pair.
type conn interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
}

// Run reads envelopes from c until the stream ends or a terminal event is
// emitted, dispatching each to the handler appropriate for the current
// state. It always releases the temp-file writer on return.
func (h *Handler) Run(ctx context.Context, c conn) error {
	defer h.cleanup()

	for {
		env, err := wire.Decode(c)
		if err != nil {
			return nil // stream closed; cleanup already deferred
		}

		if err := h.dispatch(ctx, c, env); err != nil {
			h.sendError(c, err)
			return err
		}
	}
}

func (h *Handler) dispatch(ctx context.Context, c conn, env wire.Envelope) error {
	switch h.state {
	case waitingForHeader:
		if env.Type != protocol.TypeHeader {
			return agenterr.Invalid(ErrDeploy, "unexpected message %q in waitingForHeader", env.Type)
		}
		return h.handleHeader(env)

	case acceptingChunks:
		switch env.Type {
		case protocol.TypeChunk:
			return h.handleChunk(env)
		case protocol.TypeControl:
			return h.handleControl(ctx, c, env)
		default:
			return agenterr.Invalid(ErrDeploy, "unexpected message %q in acceptingChunks", env.Type)
		}

	case running:
		if env.Type != protocol.TypeControl {
			return agenterr.Invalid(ErrDeploy, "unexpected message %q in running", env.Type)
		}
		return h.handleControl(ctx, c, env)

	default:
		return agenterr.Wrapf(ErrDeploy, "handler in unknown state")
	}
}

func (h *Handler) handleHeader(env wire.Envelope) error {
	hdr, err := wire.DecodePayload[protocol.HeaderPayload](env)
	if err != nil {
		return agenterr.Wrap(ErrDeploy, err)
	}
	if hdr.ImageName == "" {
		return agenterr.Invalid(ErrDeploy, "imageName must not be empty")
	}
	if err := imagename.Validate(hdr.ImageName); err != nil {
		return agenterr.Invalid(ErrDeploy, "imageName %q is invalid: %s", hdr.ImageName, err)
	}

	tmpDir, err := os.MkdirTemp("", "edged-upload-*")
	if err != nil {
		return agenterr.Wrap(ErrDeploy, err)
	}

	tmpPath := filepath.Join(tmpDir, fmt.Sprintf("container-%s.%s.tar", hdr.ImageName, uuid.NewString()))
	f, err := os.Create(tmpPath)
	if err != nil {
		return agenterr.Wrap(ErrDeploy, err)
	}

	h.imageName = hdr.ImageName
	h.appConfig = hdr.AppConfig
	h.tmpPath = tmpPath
	h.tmpFile = f
	h.containerName = "container-" + hdr.ImageName
	h.state = acceptingChunks
	return nil
}

func (h *Handler) handleChunk(env wire.Envelope) error {
	chunk, err := wire.DecodePayload[protocol.ChunkPayload](env)
	if err != nil {
		return agenterr.Wrap(ErrDeploy, err)
	}
	if len(chunk.Data) == 0 {
		return agenterr.Invalid(ErrDeploy, "chunk data must not be empty")
	}

	if _, err := h.tmpFile.Write(chunk.Data); err != nil {
		return agenterr.Wrap(ErrDeploy, err)
	}
	return nil
}

func (h *Handler) handleControl(ctx context.Context, c conn, env wire.Envelope) error {
	ctrl, err := wire.DecodePayload[protocol.ControlPayload](env)
	if err != nil {
		return agenterr.Wrap(ErrDeploy, err)
	}

	switch ctrl.Action {
	case protocol.ControlRun:
		if h.state != acceptingChunks {
			return agenterr.Invalid(ErrDeploy, "control.run only valid in acceptingChunks")
		}
		return h.handleRun(ctx, c, ctrl)

	case protocol.ControlStop:
		return h.handleStop(ctx, c)

	default:
		return agenterr.Invalid(ErrDeploy, "unknown control action %q", ctrl.Action)
	}
}

func (h *Handler) handleRun(ctx context.Context, c conn, ctrl protocol.ControlPayload) error {
	if err := h.tmpFile.Sync(); err != nil {
		return agenterr.Wrap(ErrDeploy, err)
	}
	if err := h.tmpFile.Close(); err != nil {
		return agenterr.Wrap(ErrDeploy, err)
	}

	f, err := os.Open(h.tmpPath)
	if err != nil {
		return agenterr.Wrap(ErrDeploy, err)
	}
	defer f.Close()

	if err := h.runtime.LoadArchive(ctx, f); err != nil {
		return agenterr.Wrap(ErrDeploy, err)
	}

	policy := resolvePolicy(ctrl, ctrl.Debug)

	ents := entitlements.Decode(h.imageName, h.appConfig)
	composed := ocibuilder.Compose(h.imageName, defaultCmd(h.imageName), "/", ents.Entitlements)

	spec := dockerrt.ContainerSpec{
		Name:          h.containerName,
		Image:         h.imageName,
		RestartPolicy: policy,
		Composed:      composed,
		Labels: map[string]string{
			"app.version":    h.imageName,
			"restart.policy": policy.LabelValue(),
		},
	}

	debugPortUsed := 0
	if ctrl.Debug {
		spec.SecurityOpt = append(spec.SecurityOpt, "seccomp=unconfined")
		spec.Cmd = []string{"ds2", "gdbserver", "0.0.0.0:4242", "/bin/" + h.imageName}
		debugPortUsed = debugPort
	}

	if err := h.runtime.Run(ctx, spec); err != nil {
		return agenterr.Wrap(ErrDeploy, err)
	}

	h.state = running
	return wire.Encode(c, protocol.TypeEvent, protocol.EventPayload{State: "containerStarted", DebugPort: debugPortUsed})
}

func (h *Handler) handleStop(ctx context.Context, c conn) error {
	if h.containerName != "" {
		if err := h.runtime.Stop(ctx, h.containerName); err != nil {
			return agenterr.Wrap(ErrDeploy, err)
		}
	}
	return wire.Encode(c, protocol.TypeEvent, protocol.EventPayload{State: "containerStopped"})
}

func (h *Handler) sendError(c conn, err error) {
	slog.Error("run-container stream error", "error", err)
	_ = wire.Encode(c, protocol.TypeError, protocol.ErrorPayload{
		Code:    agenterr.Code(err),
		Message: err.Error(),
	})
}

// cleanup releases the temp-file writer handle regardless of how the stream
// ended; partial uploads are left on disk for background cleanup.
func (h *Handler) cleanup() {
	if h.tmpFile != nil {
		h.tmpFile.Close()
	}
}

func resolvePolicy(ctrl protocol.ControlPayload, debug bool) restartpolicy.Policy {
	return ctrl.RestartPolicy.ToPolicy().Resolve(debug)
}

// defaultCmd derives the process command line for the Docker path, whose
// header carries none: the image's conventional entrypoint path.
func defaultCmd(imageName string) string {
	return "/bin/" + strings.TrimSuffix(imageName, ".tar")
}
