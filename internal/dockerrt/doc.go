// Package dockerrt is the Docker-engine fallback runtime backing the
// run-container (Docker/CLI) path for hosts without containerd. It loads a
// tar archive into the Docker image store and creates/starts/stops a single
// container per application, the Docker-API analogue of what
// internal/orchestrator does against containerd for the layered path.
package dockerrt
