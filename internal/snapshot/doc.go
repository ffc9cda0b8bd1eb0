// Package snapshot builds the chain of snapshotter keys a deploy's task
// mounts. Layers are applied one at a time and committed under deterministic,
// content-addressed keys, so when a redeploy shares a layer with a previous
// deploy its commit is a no-op alreadyExists (each layer is still prepared
// and applied); the final, writable layer is keyed by a
// fresh UUID so concurrent or successive deploys never share an upper
// directory.
package snapshot
