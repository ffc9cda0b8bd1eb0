package server

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/cruciblehq/edged/internal/protocol"
	"github.com/cruciblehq/edged/internal/wire"
)

func TestRunGetAgentVersionRespondsWithVersion(t *testing.T) {
	s := &Server{version: "1.2.3"}

	client, srv := net.Pipe()
	defer client.Close()

	go s.runGetAgentVersion(srv)

	client.SetDeadline(time.Now().Add(time.Second))
	env, err := wire.Decode(client)
	if err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if env.Type != protocol.TypeResult {
		t.Fatalf("env.Type = %q, want %q", env.Type, protocol.TypeResult)
	}

	resp, err := wire.DecodePayload[protocol.AgentVersionResponse](env)
	if err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if resp.Version != "1.2.3" {
		t.Fatalf("Version = %q, want %q", resp.Version, "1.2.3")
	}
}

func TestHandleRPCRejectsUnknownOperation(t *testing.T) {
	s := &Server{}

	client, srv := net.Pipe()

	go s.handleRPC(srv)

	client.SetDeadline(time.Now().Add(time.Second))
	if err := wire.Encode(client, "notAnOperation", struct{}{}); err != nil {
		t.Fatalf("encode request: %v", err)
	}

	env, err := wire.Decode(client)
	if err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if env.Type != protocol.TypeError {
		t.Fatalf("env.Type = %q, want %q", env.Type, protocol.TypeError)
	}
}

func TestRunRunContainerWithoutDockerFails(t *testing.T) {
	s := &Server{}

	client, srv := net.Pipe()
	defer client.Close()

	go s.runRunContainer(context.Background(), srv)

	client.SetDeadline(time.Now().Add(time.Second))
	env, err := wire.Decode(client)
	if err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if env.Type != protocol.TypeError {
		t.Fatalf("env.Type = %q, want %q", env.Type, protocol.TypeError)
	}
}
