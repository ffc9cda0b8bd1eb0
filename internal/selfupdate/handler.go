package selfupdate

import (
	"bufio"
	"context"
	"os"
	"path/filepath"

	"github.com/cruciblehq/edged/internal/agenterr"
	"github.com/cruciblehq/edged/internal/protocol"
	"github.com/cruciblehq/edged/internal/restartsupervisor"
	"github.com/cruciblehq/edged/internal/wire"
)

const stagedBinaryMode = 0o755

// conn is the minimal framed reader/writer surface the handler needs.
type conn interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
}

// Handler streams a replacement binary to disk and swaps it in atomically.
// One instance per updateAgent stream; discarded once the stream ends.
type Handler struct {
	supervisor restartsupervisor.Supervisor
	binaryPath string // override for tests; empty resolves from os.Args[0]

	tmpDir  string
	tmpPath string
	tmpFile *os.File
	writer  *bufio.Writer
}

// NewHandler binds a Handler to the restart contract. binaryPathOverride is
// normally empty; tests supply a path so the handler doesn't rewrite the
// test binary itself.
func NewHandler(supervisor restartsupervisor.Supervisor, binaryPathOverride string) *Handler {
	return &Handler{supervisor: supervisor, binaryPath: binaryPathOverride}
}

// Run drives the stream: chunk frames append to a staged file; a
// control.commit frame flushes it, swaps it onto the current binary, and
// invokes the restart contract.
func (h *Handler) Run(ctx context.Context, c conn) error {
	defer h.cleanup()

	if err := h.open(); err != nil {
		h.sendError(c, err)
		return err
	}

	for {
		env, err := wire.Decode(c)
		if err != nil {
			return nil
		}

		switch env.Type {
		case protocol.TypeChunk:
			if err := h.handleChunk(env); err != nil {
				h.sendError(c, err)
				return err
			}

		case protocol.TypeControl:
			ctrl, err := wire.DecodePayload[protocol.ControlPayload](env)
			if err != nil {
				h.sendError(c, err)
				return err
			}
			if ctrl.Action != protocol.ControlCommit {
				err := agenterr.Invalid(ErrSelfUpdate, "unknown control action %q", ctrl.Action)
				h.sendError(c, err)
				return err
			}
			if err := h.commit(); err != nil {
				h.sendError(c, err)
				return err
			}
			if err := wire.Encode(c, protocol.TypeEvent, protocol.EventPayload{State: "updated"}); err != nil {
				return err
			}
			return h.supervisor.Restart()

		default:
			err := agenterr.Invalid(ErrSelfUpdate, "unexpected message %q", env.Type)
			h.sendError(c, err)
			return err
		}
	}
}

// open resolves the current binary, verifies it is a regular file, and
// stages a fresh 0755 temp file to receive the upload.
func (h *Handler) open() error {
	binaryPath := h.binaryPath
	if binaryPath == "" {
		binaryPath = os.Args[0]
	}

	info, err := os.Stat(binaryPath)
	if err != nil {
		return agenterr.Wrap(ErrSelfUpdate, err)
	}
	if !info.Mode().IsRegular() {
		return agenterr.Wrapf(ErrSelfUpdate, "%s is not a regular file", binaryPath)
	}
	h.binaryPath = binaryPath

	tmpDir, err := os.MkdirTemp(filepath.Dir(binaryPath), "edged-selfupdate-*")
	if err != nil {
		return agenterr.Wrap(ErrSelfUpdate, err)
	}
	h.tmpDir = tmpDir

	tmpPath := tmpDir + "/edged"
	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, stagedBinaryMode)
	if err != nil {
		return agenterr.Wrap(ErrSelfUpdate, err)
	}

	h.tmpPath = tmpPath
	h.tmpFile = f
	h.writer = bufio.NewWriter(f)
	return nil
}

func (h *Handler) handleChunk(env wire.Envelope) error {
	chunk, err := wire.DecodePayload[protocol.ChunkPayload](env)
	if err != nil {
		return agenterr.Wrap(ErrSelfUpdate, err)
	}
	if len(chunk.Data) == 0 {
		return agenterr.Invalid(ErrSelfUpdate, "chunk data must not be empty")
	}
	if _, err := h.writer.Write(chunk.Data); err != nil {
		return agenterr.Wrap(ErrSelfUpdate, err)
	}
	return nil
}

// commit flushes the staged binary and renames it onto the current binary
// path. The temp dir is created next to binaryPath rather than under the
// system temp dir, so both files are guaranteed to share a filesystem and the
// rename is atomic: there is no window in which binaryPath is missing,
// unlike a remove-then-rename sequence.
func (h *Handler) commit() error {
	if err := h.writer.Flush(); err != nil {
		return agenterr.Wrap(ErrSelfUpdate, err)
	}
	if err := h.tmpFile.Sync(); err != nil {
		return agenterr.Wrap(ErrSelfUpdate, err)
	}
	if err := h.tmpFile.Close(); err != nil {
		return agenterr.Wrap(ErrSelfUpdate, err)
	}

	if err := os.Rename(h.tmpPath, h.binaryPath); err != nil {
		return agenterr.Wrap(ErrSelfUpdate, err)
	}

	return nil
}

func (h *Handler) sendError(c conn, err error) {
	_ = wire.Encode(c, protocol.TypeError, protocol.ErrorPayload{
		Code:    agenterr.Code(err),
		Message: err.Error(),
	})
}

// cleanup closes the staged file handle if still open and removes the temp
// directory. On a path that didn't reach a successful rename this discards
// the partial upload; after a completed commit the file has already been
// renamed out of tmpDir, so only the empty directory is removed.
func (h *Handler) cleanup() {
	if h.tmpFile != nil {
		h.tmpFile.Close()
	}
	if h.tmpDir != "" {
		os.RemoveAll(h.tmpDir)
	}
}
