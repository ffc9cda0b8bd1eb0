package server

import (
	"log/slog"
	"net"
	"os"
	"time"

	"github.com/cruciblehq/edged/internal/agenterr"
	"github.com/cruciblehq/edged/internal/protocol"
	"github.com/cruciblehq/edged/internal/wire"
)

// acceptAdmin serves the Unix admin socket: one status or shutdown command
// per connection, answered and closed.
func (s *Server) acceptAdmin() {
	for {
		conn, err := s.adminListener.Accept()
		if err != nil {
			select {
			case <-s.done:
				return
			default:
				slog.Error("admin accept error", "error", err)
				continue
			}
		}
		go s.handleAdmin(conn)
	}
}

func (s *Server) handleAdmin(conn net.Conn) {
	defer conn.Close()

	env, err := wire.Decode(conn)
	if err != nil {
		return
	}

	switch env.Type {
	case protocol.CmdStatus:
		s.handleStatus(conn)
	case protocol.CmdShutdown:
		s.handleShutdown(conn)
	default:
		s.respondAdminError(conn, agenterr.Invalid(ErrServer, "unknown admin command %q", env.Type))
	}
}

func (s *Server) handleStatus(conn net.Conn) {
	result := protocol.StatusResult{
		Running: true,
		Version: s.version,
		Pid:     os.Getpid(),
		Uptime:  time.Since(s.startedAt).String(),
	}
	if err := wire.Encode(conn, protocol.CmdOK, result); err != nil {
		slog.Error("failed to write admin status response", "error", err)
	}
}

// handleShutdown acknowledges the request, then stops the server in the
// background: the shutdown-initiating connection must see its response
// before the admin socket it arrived on is torn down.
func (s *Server) handleShutdown(conn net.Conn) {
	if err := wire.Encode(conn, protocol.CmdOK, protocol.StatusResult{Running: true, Version: s.version, Pid: os.Getpid()}); err != nil {
		slog.Error("failed to write admin shutdown response", "error", err)
	}
	go s.Stop()
}

func (s *Server) respondAdminError(conn net.Conn, err error) {
	slog.Error("admin request failed", "error", err)
	_ = wire.Encode(conn, protocol.CmdErr, protocol.ErrorPayload{
		Code:    agenterr.Code(err),
		Message: err.Error(),
	})
}
