package paths

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

const (

	// Name used for directory and file naming.
	daemonName = "edged"

	// Default permission mode for directories.
	DefaultDirMode os.FileMode = 0755

	// Default permission mode for files.
	DefaultFileMode os.FileMode = 0644

	// Default permission mode for the self-update staged binary.
	StagedBinaryMode os.FileMode = 0755
)

// Path to the directory for runtime files (sockets, PIDs).
//
//	Linux:   $XDG_RUNTIME_DIR/edged or /run/user/<uid>/edged
//	macOS:   ~/Library/Caches/edged/run
func Runtime() string {
	if xdg.RuntimeDir != "" {
		return filepath.Join(xdg.RuntimeDir, daemonName)
	}
	return filepath.Join(xdg.CacheHome, daemonName, "run")
}

// Default path to the Unix domain socket used for local admin commands
// (status, shutdown). The deploy-facing RPC surface listens on TCP instead;
// see internal/server.
//
//	Linux:   $XDG_RUNTIME_DIR/edged/edged.sock
//	macOS:   ~/Library/Caches/edged/run/edged.sock
func AdminSocket() string {
	return filepath.Join(Runtime(), "edged.sock")
}

// Default path to the PID file.
func PIDFile() string {
	return filepath.Join(Runtime(), "edged.pid")
}
