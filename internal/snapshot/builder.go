package snapshot

import (
	"context"

	"github.com/containerd/containerd/v2/core/diff"
	"github.com/containerd/containerd/v2/core/mount"
	"github.com/containerd/containerd/v2/core/snapshots"
	"github.com/containerd/errdefs"
	"github.com/google/uuid"
	digest "github.com/opencontainers/go-digest"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
)

// LayerDescriptor is one layer of an image, in apply order.
type LayerDescriptor struct {
	Digest digest.Digest
	Size   int64
	DiffID digest.Digest
	Gzip   bool
}

// Chain is the result of a build: the key the task should mount, and the
// mounts themselves. SnapshotKey is empty when the layer list was empty.
type Chain struct {
	SnapshotKey string
	Mounts      []mount.Mount
}

// Builder prepares and commits snapshots for a snapshotter/differ pair.
type Builder struct {
	sn     snapshots.Snapshotter
	differ diff.Applier
}

// New returns a Builder bound to the given snapshotter and diff applier.
func New(sn snapshots.Snapshotter, differ diff.Applier) *Builder {
	return &Builder{sn: sn, differ: differ}
}

// Build applies each layer under a deterministic "appName-<diffID>" key
// parented to the previous layer, then prepares one more snapshot under a
// fresh UUID parented to the last committed layer. That final snapshot is
// the ephemeral writable layer the caller's task mounts.
//
// An empty layer list returns an empty Chain: no snapshot is prepared.
func (b *Builder) Build(ctx context.Context, appName string, layers []LayerDescriptor) (Chain, error) {
	if len(layers) == 0 {
		return Chain{}, nil
	}

	var parent string
	for _, layer := range layers {
		name := layerName(appName, layer.DiffID)
		active := uuid.NewString() + "-" + name

		mounts, err := b.sn.Prepare(ctx, active, parent)
		if err != nil {
			return Chain{}, err
		}

		if _, err := b.differ.Apply(ctx, layerDescriptor(layer), mounts); err != nil {
			return Chain{}, err
		}

		if err := b.sn.Commit(ctx, name, active); err != nil && !errdefs.IsAlreadyExists(err) {
			return Chain{}, err
		}

		parent = name
	}

	ephemeralKey := appName + "-" + uuid.NewString()
	mounts, err := b.sn.Prepare(ctx, ephemeralKey, parent)
	if err != nil {
		return Chain{}, err
	}

	return Chain{SnapshotKey: ephemeralKey, Mounts: mounts}, nil
}

// layerName is the deterministic committed-snapshot name for a layer: shared
// across deploys of the same app that apply the same diff, so the commit
// below becomes a no-op alreadyExists on repeat.
func layerName(appName string, diffID digest.Digest) string {
	return appName + "-" + diffID.String()
}

func layerDescriptor(l LayerDescriptor) ocispec.Descriptor {
	mediaType := ocispec.MediaTypeImageLayer
	if l.Gzip {
		mediaType = ocispec.MediaTypeImageLayerGzip
	}
	return ocispec.Descriptor{
		MediaType: mediaType,
		Digest:    l.Digest,
		Size:      l.Size,
	}
}
