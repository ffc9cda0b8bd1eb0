package orchestrator

import (
	"strings"

	"github.com/containerd/platforms"
	"github.com/cruciblehq/edged/internal/snapshot"
	digest "github.com/opencontainers/go-digest"
	specs "github.com/opencontainers/image-spec/specs-go"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
)

// buildConfig produces the image config blob: architecture/os for the host
// platform (via containerd's own platform-normalization logic, so it agrees
// with whatever platform string the snapshot/diff services were told to
// apply against), the default entrypoint, a fixed stop signal, and the
// ordered diff IDs the runtime's restart manager and future redeploys rely
// on to recognize shared layers.
func buildConfig(cmd string, layers []snapshot.LayerDescriptor) ocispec.Image {
	diffIDs := make([]digest.Digest, len(layers))
	for i, l := range layers {
		diffIDs[i] = l.DiffID
	}

	platform := platforms.DefaultSpec()

	return ocispec.Image{
		Architecture: platform.Architecture,
		OS:           platform.OS,
		Config: ocispec.ImageConfig{
			Cmd:        strings.Fields(cmd),
			StopSignal: "SIGTERM",
		},
		RootFS: ocispec.RootFS{
			Type:    "layers",
			DiffIDs: diffIDs,
		},
	}
}

// buildManifest references the config and the ordered layer descriptors
// under the media types their gzip flag implies.
func buildManifest(configDesc ocispec.Descriptor, layers []snapshot.LayerDescriptor) ocispec.Manifest {
	descs := make([]ocispec.Descriptor, len(layers))
	for i, l := range layers {
		mediaType := ocispec.MediaTypeImageLayer
		if l.Gzip {
			mediaType = ocispec.MediaTypeImageLayerGzip
		}
		descs[i] = ocispec.Descriptor{
			MediaType: mediaType,
			Digest:    l.Digest,
			Size:      l.Size,
		}
	}

	return ocispec.Manifest{
		Versioned: specs.Versioned{SchemaVersion: 2},
		MediaType: ocispec.MediaTypeImageManifest,
		Config:    configDesc,
		Layers:    descs,
	}
}
