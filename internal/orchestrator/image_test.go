package orchestrator

import (
	"testing"

	"github.com/cruciblehq/edged/internal/snapshot"
	digest "github.com/opencontainers/go-digest"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
)

func TestBuildConfigDiffIDOrder(t *testing.T) {
	layers := []snapshot.LayerDescriptor{
		{DiffID: digest.FromString("l0")},
		{DiffID: digest.FromString("l1")},
	}

	cfg := buildConfig("/bin/cam --flag", layers)

	if cfg.Config.StopSignal != "SIGTERM" {
		t.Fatalf("StopSignal = %q, want SIGTERM", cfg.Config.StopSignal)
	}
	if len(cfg.Config.Cmd) != 2 || cfg.Config.Cmd[0] != "/bin/cam" {
		t.Fatalf("Cmd = %v", cfg.Config.Cmd)
	}
	if len(cfg.RootFS.DiffIDs) != 2 || cfg.RootFS.DiffIDs[0] != layers[0].DiffID || cfg.RootFS.DiffIDs[1] != layers[1].DiffID {
		t.Fatalf("DiffIDs = %v, want ordered %v", cfg.RootFS.DiffIDs, layers)
	}
}

func TestBuildManifestMediaTypesFollowGzipFlag(t *testing.T) {
	layers := []snapshot.LayerDescriptor{
		{Digest: digest.FromString("l0"), Gzip: true},
		{Digest: digest.FromString("l1"), Gzip: false},
	}

	m := buildManifest(ocispec.Descriptor{Digest: digest.FromString("config")}, layers)

	if m.Layers[0].MediaType != ocispec.MediaTypeImageLayerGzip {
		t.Fatalf("layer 0 MediaType = %q", m.Layers[0].MediaType)
	}
	if m.Layers[1].MediaType != ocispec.MediaTypeImageLayer {
		t.Fatalf("layer 1 MediaType = %q", m.Layers[1].MediaType)
	}
	if m.MediaType != ocispec.MediaTypeImageManifest {
		t.Fatalf("MediaType = %q", m.MediaType)
	}
}
