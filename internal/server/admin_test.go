package server

import (
	"net"
	"testing"
	"time"

	"github.com/cruciblehq/edged/internal/protocol"
	"github.com/cruciblehq/edged/internal/wire"
)

func TestHandleStatusReportsVersionAndPid(t *testing.T) {
	s := &Server{version: "9.9.9", startedAt: time.Now()}

	client, srv := net.Pipe()
	defer client.Close()

	go s.handleStatus(srv)

	client.SetDeadline(time.Now().Add(time.Second))
	env, err := wire.Decode(client)
	if err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if env.Type != protocol.CmdOK {
		t.Fatalf("env.Type = %q, want %q", env.Type, protocol.CmdOK)
	}

	result, err := wire.DecodePayload[protocol.StatusResult](env)
	if err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if !result.Running || result.Version != "9.9.9" {
		t.Fatalf("unexpected status result: %+v", result)
	}
}

func TestHandleAdminRejectsUnknownCommand(t *testing.T) {
	s := &Server{}

	client, srv := net.Pipe()

	go s.handleAdmin(srv)

	client.SetDeadline(time.Now().Add(time.Second))
	if err := wire.Encode(client, "notACommand", struct{}{}); err != nil {
		t.Fatalf("encode request: %v", err)
	}

	env, err := wire.Decode(client)
	if err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if env.Type != protocol.CmdErr {
		t.Fatalf("env.Type = %q, want %q", env.Type, protocol.CmdErr)
	}
}
