package ocibuilder

import "github.com/containerd/cgroups/v3"

// VerifyCgroupDriver reports whether the host's cgroup hierarchy matches
// what the systemd-style cgroupsPath format produced by the video and audio
// entitlements assumes. Compose itself stays pure and never calls this;
// internal/server calls it once at startup so a mismatched host surfaces as
// a startup log warning rather than a task that fails to start the first
// time a video-entitled app deploys.
func VerifyCgroupDriver() error {
	if cgroups.Mode() != cgroups.Unified {
		return ErrLegacyCgroupHierarchy
	}
	return nil
}
