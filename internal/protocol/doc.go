// Package protocol defines the message schemas carried over internal/wire:
// the run-container and self-update stream messages (header, chunk,
// control, event) and the admin socket's request/response pairs. It
// replaces the daemon's previous single-shot build protocol with a
// multi-message vocabulary while keeping the same envelope-plus-payload
// shape and the same CmdOK/CmdErr response convention.
package protocol
