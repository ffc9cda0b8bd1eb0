// Package selfupdate streams a replacement agent binary into a temp file
// and atomically renames it over the running process's own executable,
// then hands off to the restart supervisor contract (internal/restartsupervisor).
package selfupdate
