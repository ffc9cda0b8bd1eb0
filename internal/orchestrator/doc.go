// Package orchestrator drives the containerd-backed deploy lifecycle: one
// container and at most one task per application name. Deploy builds an
// image and snapshot chain from the supplied layers and entitlements, then
// creates or updates the container and task in place; Stop and List read
// and mutate the same containerd state.
package orchestrator
