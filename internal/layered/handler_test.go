package layered

import (
	"context"
	"strings"
	"testing"

	"github.com/cruciblehq/edged/internal/protocol"
)

var zero64 = strings.Repeat("0", 64)

func TestRunContainerLayeredRejectsEmptyImageName(t *testing.T) {
	h := NewHandler(nil)
	err := h.RunContainerLayered(context.Background(), protocol.RunContainerLayeredRequest{AppName: "app"})
	if err == nil {
		t.Fatal("expected error for empty imageName")
	}
}

func TestRunContainerLayeredRejectsEmptyAppName(t *testing.T) {
	h := NewHandler(nil)
	err := h.RunContainerLayered(context.Background(), protocol.RunContainerLayeredRequest{ImageName: "img"})
	if err == nil {
		t.Fatal("expected error for empty appName")
	}
}

func TestDecodeLayersRejectsBadDigest(t *testing.T) {
	_, err := decodeLayers([]protocol.LayerWire{{Digest: "not-a-digest", DiffID: "sha256:" + zero64}})
	if err == nil {
		t.Fatal("expected error for malformed digest")
	}
}

func TestDecodeLayersAcceptsValidDigests(t *testing.T) {
	got, err := decodeLayers([]protocol.LayerWire{
		{Digest: "sha256:" + zero64, Size: 10, DiffID: "sha256:" + zero64, Gzip: true},
	})
	if err != nil {
		t.Fatalf("decodeLayers: %v", err)
	}
	if len(got) != 1 || got[0].Size != 10 || !got[0].Gzip {
		t.Fatalf("unexpected decode result: %+v", got)
	}
}

