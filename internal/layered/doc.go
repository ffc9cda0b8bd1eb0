// Package layered validates and drives the containerd-backed
// runContainerLayered RPC: a unary request carrying pre-split layers,
// dispatched straight into internal/orchestrator. This is the
// dedup-capable counterpart to internal/deploy's Docker/CLI stream.
package layered
