package deploy

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/cruciblehq/edged/internal/protocol"
	"github.com/cruciblehq/edged/internal/wire"
)

// pipe is a minimal in-memory conn backed by a byte buffer, enough to drive
// wire.Decode/Encode without a real socket.
type pipe struct {
	in  *strings.Reader
	out strings.Builder
}

func newPipe(frames ...[]byte) *pipe {
	var all []byte
	for _, f := range frames {
		all = append(all, f...)
	}
	return &pipe{in: strings.NewReader(string(all))}
}

func (p *pipe) Read(b []byte) (int, error)  { return p.in.Read(b) }
func (p *pipe) Write(b []byte) (int, error) { return p.out.Write(b) }

func encodeFrame(t *testing.T, msgType string, payload any) []byte {
	t.Helper()
	var buf strings.Builder
	if err := wire.Encode(&buf, msgType, payload); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return []byte(buf.String())
}

func TestHandleHeaderRejectsEmptyImageName(t *testing.T) {
	h := NewHandler(nil)
	env := wire.Envelope{Type: protocol.TypeHeader, Payload: mustMarshal(t, protocol.HeaderPayload{ImageName: ""})}

	if err := h.handleHeader(env); err == nil {
		t.Fatal("expected error for empty imageName")
	}
	if h.state != waitingForHeader {
		t.Fatalf("state should not advance on error, got %v", h.state)
	}
}

func TestHandleHeaderTransitionsToAcceptingChunks(t *testing.T) {
	h := NewHandler(nil)
	env := wire.Envelope{Type: protocol.TypeHeader, Payload: mustMarshal(t, protocol.HeaderPayload{ImageName: "myapp"})}

	if err := h.handleHeader(env); err != nil {
		t.Fatalf("handleHeader: %v", err)
	}
	if h.state != acceptingChunks {
		t.Fatalf("expected acceptingChunks, got %v", h.state)
	}
	if h.containerName != "container-myapp" {
		t.Fatalf("unexpected container name %q", h.containerName)
	}
	h.cleanup()
}

func TestHandleChunkRejectsEmptyData(t *testing.T) {
	h := NewHandler(nil)
	if err := h.handleHeader(wire.Envelope{Type: protocol.TypeHeader, Payload: mustMarshal(t, protocol.HeaderPayload{ImageName: "app"})}); err != nil {
		t.Fatalf("handleHeader: %v", err)
	}
	defer h.cleanup()

	env := wire.Envelope{Type: protocol.TypeChunk, Payload: mustMarshal(t, protocol.ChunkPayload{Data: nil})}
	if err := h.handleChunk(env); err == nil {
		t.Fatal("expected error for empty chunk data")
	}
}

func TestDispatchRejectsMismatchedMessage(t *testing.T) {
	h := NewHandler(nil)
	ctx := context.Background()

	env := wire.Envelope{Type: protocol.TypeChunk}
	if err := h.dispatch(ctx, &pipe{}, env); err == nil {
		t.Fatal("expected error for chunk before header")
	}
}

func TestDefaultCmdStripsTarSuffix(t *testing.T) {
	if got := defaultCmd("myapp.tar"); got != "/bin/myapp" {
		t.Fatalf("defaultCmd = %q", got)
	}
	if got := defaultCmd("myapp"); got != "/bin/myapp" {
		t.Fatalf("defaultCmd = %q", got)
	}
}

func mustMarshal(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return b
}
