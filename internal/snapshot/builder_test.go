package snapshot

import (
	"testing"

	digest "github.com/opencontainers/go-digest"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
)

func TestLayerNameIsDeterministic(t *testing.T) {
	d := digest.FromString("layer-0")

	a := layerName("cam", d)
	b := layerName("cam", d)
	if a != b {
		t.Fatalf("layerName not deterministic: %q != %q", a, b)
	}
	if a != "cam-"+d.String() {
		t.Fatalf("layerName(cam, %s) = %q, want cam-%s", d, a, d)
	}
}

func TestLayerNameVariesByApp(t *testing.T) {
	d := digest.FromString("layer-0")
	if layerName("cam", d) == layerName("mic", d) {
		t.Fatal("layerName should differ across app names for the same diffID")
	}
}

func TestLayerDescriptorMediaType(t *testing.T) {
	gzipLayer := LayerDescriptor{Digest: digest.FromString("a"), Size: 10, Gzip: true}
	if got := layerDescriptor(gzipLayer).MediaType; got != ocispec.MediaTypeImageLayerGzip {
		t.Fatalf("MediaType = %q, want %q", got, ocispec.MediaTypeImageLayerGzip)
	}

	plainLayer := LayerDescriptor{Digest: digest.FromString("b"), Size: 10, Gzip: false}
	if got := layerDescriptor(plainLayer).MediaType; got != ocispec.MediaTypeImageLayer {
		t.Fatalf("MediaType = %q, want %q", got, ocispec.MediaTypeImageLayer)
	}
}

func TestBuildEmptyLayersReturnsEmptyChain(t *testing.T) {
	b := New(nil, nil)
	chain, err := b.Build(nil, "cam", nil) //nolint:staticcheck // no snapshotter call is made on the empty path
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if chain.SnapshotKey != "" || chain.Mounts != nil {
		t.Fatalf("Build(empty) = %+v, want zero value", chain)
	}
}
