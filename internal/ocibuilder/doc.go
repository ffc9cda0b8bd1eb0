// Package ocibuilder composes an OCI runtime spec from an application name,
// command, working directory, and a set of entitlements.
//
// Compose is pure: it never touches the filesystem or a container runtime. It
// starts from a fixed base profile (process, mounts, namespaces, a minimal
// capability set, and a permissive seccomp profile for the host's only
// supported architecture) and applies each entitlement as an independent
// mutation (network mode, video, audio, bluetooth), so that, say, a
// network.none entitlement and a video entitlement compose without either
// one clobbering the other's changes.
package ocibuilder
