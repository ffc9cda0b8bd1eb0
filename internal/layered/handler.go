package layered

import (
	"context"

	digest "github.com/opencontainers/go-digest"

	"github.com/cruciblehq/edged/internal/agenterr"
	"github.com/cruciblehq/edged/internal/imagename"
	"github.com/cruciblehq/edged/internal/orchestrator"
	"github.com/cruciblehq/edged/internal/protocol"
	"github.com/cruciblehq/edged/internal/snapshot"
)

// Handler dispatches runContainerLayered requests to an Orchestrator. Unlike
// internal/deploy it is stateless and safe to share across connections.
type Handler struct {
	orch *orchestrator.Orchestrator
}

// NewHandler binds a Handler to an Orchestrator.
func NewHandler(orch *orchestrator.Orchestrator) *Handler {
	return &Handler{orch: orch}
}

// RunContainerLayered validates req and drives a deploy straight into
// internal/orchestrator. An empty layer list is accepted: the image, manifest,
// and config are still created, but no snapshot is prepared, so the
// container record carries an empty snapshot key.
func (h *Handler) RunContainerLayered(ctx context.Context, req protocol.RunContainerLayeredRequest) error {
	if req.ImageName == "" {
		return agenterr.Invalid(ErrLayered, "imageName must not be empty")
	}
	if err := imagename.Validate(req.ImageName); err != nil {
		return agenterr.Invalid(ErrLayered, "imageName %q is invalid: %s", req.ImageName, err)
	}
	if req.AppName == "" {
		return agenterr.Invalid(ErrLayered, "appName must not be empty")
	}

	layers, err := decodeLayers(req.Layers)
	if err != nil {
		return agenterr.Invalid(ErrLayered, "%s", err)
	}

	deployReq := orchestrator.DeployRequest{
		AppName:       req.AppName,
		Cmd:           req.Cmd,
		Cwd:           req.WorkingDir,
		Layers:        layers,
		AppConfigBlob: req.AppConfig,
		RestartPolicy: req.RestartPolicy.ToPolicy(),
		Debug:         req.Debug,
	}

	if err := h.orch.Deploy(ctx, deployReq); err != nil {
		return agenterr.Wrap(ErrLayered, err)
	}
	return nil
}

// decodeLayers translates the wire layer list into snapshot descriptors,
// rejecting any entry whose digest does not parse.
func decodeLayers(wire []protocol.LayerWire) ([]snapshot.LayerDescriptor, error) {
	out := make([]snapshot.LayerDescriptor, 0, len(wire))
	for _, l := range wire {
		d, err := digest.Parse(l.Digest)
		if err != nil {
			return nil, err
		}
		diffID, err := digest.Parse(l.DiffID)
		if err != nil {
			return nil, err
		}
		out = append(out, snapshot.LayerDescriptor{
			Digest: d,
			Size:   l.Size,
			DiffID: diffID,
			Gzip:   l.Gzip,
		})
	}
	return out, nil
}
