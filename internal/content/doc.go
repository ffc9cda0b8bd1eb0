// Package content wraps the containerd content store with the three
// operations the rest of the daemon needs: enumerating blobs, streaming a
// layer into the store under a write session, and uploading an arbitrary
// value as canonical JSON. An alreadyExists outcome on commit is treated as
// success everywhere in this package, since the blob being present already
// satisfies the caller's intent.
package content
