// Package server implements the edged daemon's Agent RPC Surface (C8).
//
// Two listeners run side by side: a TCP listener carrying the deploy-facing
// RPC surface (runContainer, runContainerLayered, writeLayer, listLayers,
// listContainers, stopContainer, selfUpdate, getAgentVersion), and the
// Unix admin socket (paths.AdminSocket), scoped to status/shutdown only.
// A third HTTP server exposes Prometheus metrics and
// health/readiness endpoints (internal/metrics).
//
// Every TCP connection opens with one envelope whose Type names the
// operation (internal/protocol's Op* constants); the connection is then
// handed to that operation's handler, which reads and writes whatever
// further frames its protocol requires.
package server
