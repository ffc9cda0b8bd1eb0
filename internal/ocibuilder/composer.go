package ocibuilder

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/cruciblehq/edged/internal/entitlements"
	specs "github.com/opencontainers/runtime-spec/specs-go"
)

const (
	ociVersion = "1.0.3"

	videoDeviceMajor = 81
	videoDeviceMinor = 17

	// ALSA's fixed character-device major on Linux.
	audioDeviceMajor = 116
)

var videoCapabilities = []string{
	"CAP_CHOWN", "CAP_DAC_OVERRIDE", "CAP_FSETID", "CAP_FOWNER", "CAP_MKNOD",
	"CAP_NET_RAW", "CAP_SETGID", "CAP_SETUID", "CAP_SETFCAP", "CAP_SETPCAP",
	"CAP_NET_BIND_SERVICE", "CAP_SYS_CHROOT", "CAP_KILL", "CAP_AUDIT_WRITE",
	"CAP_SYS_PTRACE",
}

// Result is the output of Compose: the runtime spec plus companion metadata
// the orchestrator needs that doesn't belong in the OCI JSON itself (the
// network-mode label a Docker-fallback translation cares about, and the
// cgroup path a video-entitled deploy is scoped under).
type Result struct {
	Spec        *specs.Spec
	NetworkMode string // "host" or "none"
	CgroupsPath string // set when the video or audio entitlement is active
}

// Marshal renders the spec as canonical JSON bytes, suitable for hashing or
// writing to a container's config.json.
func (r *Result) Marshal() ([]byte, error) {
	return json.Marshal(r.Spec)
}

// Compose builds an OCI runtime spec for a single application process.
//
// cmd is split on whitespace into process args; cwd defaults to "/" when
// empty. Entitlements are applied in order, each as an independent mutation
// of the base profile; order between entitlements does not matter except
// that every device-cgroup rule list must start with a deny-all (enforced
// per-entitlement, not globally).
func Compose(appName, cmd, cwd string, ents []entitlements.Entitlement) *Result {
	if cwd == "" {
		cwd = "/"
	}

	res := &Result{
		Spec:        baseSpec(cmd, cwd),
		NetworkMode: "host",
	}

	for _, e := range ents {
		switch e.Kind {
		case entitlements.KindNetwork:
			applyNetwork(res, e.Network)
		case entitlements.KindVideo:
			applyVideo(res, appName)
		case entitlements.KindAudio:
			applyAudio(res, appName)
		case entitlements.KindBluetooth:
			applyBluetooth(res)
		default:
			// Unrecognized entitlement variants are ignored, not rejected,
			// for forward compatibility with newer manifests.
		}
	}

	return res
}

// baseSpec returns the profile every deploy starts from, before entitlement
// mutations are applied.
func baseSpec(cmd, cwd string) *specs.Spec {
	return &specs.Spec{
		Version: ociVersion,
		Process: &specs.Process{
			Terminal: false,
			User:     specs.User{UID: 0, GID: 0},
			Args:     strings.Fields(cmd),
			Env:      []string{"PATH=/usr/local/sbin:/usr/local/bin:/usr/sbin:/usr/bin:/sbin:/bin"},
			Cwd:      cwd,
			Capabilities: &specs.LinuxCapabilities{
				Bounding:    []string{"CAP_SYS_PTRACE"},
				Effective:   []string{"CAP_SYS_PTRACE"},
				Inheritable: []string{"CAP_SYS_PTRACE"},
				Permitted:   []string{"CAP_SYS_PTRACE"},
			},
		},
		Root: &specs.Root{
			Path:     "rootfs",
			Readonly: false,
		},
		Mounts: []specs.Mount{
			{Destination: "/proc", Type: "proc", Source: "proc"},
			{
				Destination: "/dev/pts",
				Type:        "devpts",
				Source:      "devpts",
				Options:     []string{"nosuid", "noexec", "newinstance", "ptmxmode=0666", "mode=0620"},
			},
			{
				Destination: "/dev/shm",
				Type:        "tmpfs",
				Source:      "shm",
				Options:     []string{"nosuid", "noexec", "nodev", "mode=1777", "size=65536k"},
			},
			{
				Destination: "/dev/mqueue",
				Type:        "mqueue",
				Source:      "mqueue",
				Options:     []string{"nosuid", "noexec", "nodev"},
			},
		},
		Linux: &specs.Linux{
			Namespaces: []specs.LinuxNamespace{
				{Type: specs.PIDNamespace},
				{Type: specs.IPCNamespace},
				{Type: specs.UTSNamespace},
				{Type: specs.MountNamespace},
			},
			Resources: &specs.LinuxResources{},
			Seccomp: &specs.LinuxSeccomp{
				DefaultAction: specs.ActAllow,
				Architectures: []specs.Arch{specs.ArchAARCH64},
			},
			Devices: []specs.LinuxDevice{},
		},
	}
}

// applyNetwork sets the network-namespace policy. Host networking (the
// default) adds no network namespace entry; isolated networking appends one.
func applyNetwork(res *Result, n entitlements.Network) {
	switch n.Mode {
	case entitlements.NetworkNone:
		res.NetworkMode = "none"
		appendNamespace(res.Spec, specs.NetworkNamespace)
	default:
		res.NetworkMode = "host"
		removeNamespace(res.Spec, specs.NetworkNamespace)
	}
}

// applyVideo grants access to /dev/video0 for V4L2 capture: the device node,
// the capability subset that userspace camera stacks expect, a read-only
// cgroupfs mount, an explicit bind mount of the host device, a scoped cgroup
// path, and a device-cgroup allow rule for this device behind a leading
// deny-all.
func applyVideo(res *Result, appName string) {
	s := res.Spec

	s.Linux.Devices = append(s.Linux.Devices, specs.LinuxDevice{
		Path:     "/dev/video0",
		Type:     "c",
		Major:    videoDeviceMajor,
		Minor:    videoDeviceMinor,
		FileMode: modePtr(0o666),
		UID:      uint32Ptr(0),
		GID:      uint32Ptr(0),
	})

	unionCapabilities(s, videoCapabilities)

	s.Mounts = append(s.Mounts, specs.Mount{
		Destination: "/sys/fs/cgroup",
		Type:        "cgroup",
		Source:      "cgroup",
		Options:     []string{"ro", "nosuid", "noexec", "nodev"},
	})
	s.Mounts = append(s.Mounts, specs.Mount{
		Destination: "/dev/video0",
		Type:        "bind",
		Source:      "/dev/video0",
		Options:     []string{"rbind", "rw"},
	})

	appendNamespace(s, specs.CgroupNamespace)

	res.CgroupsPath = cgroupsPath(appName)
	s.Linux.CgroupsPath = res.CgroupsPath

	allowDevice(s, specs.LinuxDeviceCgroup{
		Allow: true, Type: "c", Major: int64Ptr(videoDeviceMajor), Minor: int64Ptr(videoDeviceMinor), Access: "rwm",
	})
}

// applyAudio grants access to /dev/snd for ALSA playback/capture, mirroring
// applyVideo's shape but for the sound subsystem's device major.
func applyAudio(res *Result, appName string) {
	s := res.Spec

	unionCapabilities(s, videoCapabilities)

	s.Mounts = append(s.Mounts, specs.Mount{
		Destination: "/dev/snd",
		Type:        "bind",
		Source:      "/dev/snd",
		Options:     []string{"rbind", "rw"},
	})

	appendNamespace(s, specs.CgroupNamespace)

	if res.CgroupsPath == "" {
		res.CgroupsPath = cgroupsPath(appName)
		s.Linux.CgroupsPath = res.CgroupsPath
	}

	allowDevice(s, specs.LinuxDeviceCgroup{
		Allow: true, Type: "c", Major: int64Ptr(audioDeviceMajor), Access: "rwm",
	})
}

// allowDevice appends an allow rule to the device-cgroup list, first
// inserting a leading deny-all if the list does not already start with one.
func allowDevice(s *specs.Spec, rule specs.LinuxDeviceCgroup) {
	rules := s.Linux.Resources.Devices
	if len(rules) == 0 || rules[0].Allow {
		rules = append([]specs.LinuxDeviceCgroup{{Allow: false, Access: "rwm"}}, rules...)
	}
	s.Linux.Resources.Devices = append(rules, rule)
}

// applyBluetooth grants the capabilities needed to manage a bluetooth
// adapter (HCI control and raw socket access).
func applyBluetooth(res *Result) {
	unionCapabilities(res.Spec, []string{"CAP_NET_ADMIN", "CAP_NET_RAW"})
}

// cgroupsPath scopes an application's cgroup under a fixed slice, replacing
// dashes with underscores since cgroup path components may not contain them
// the way systemd unit names do. This form assumes a systemd-aware cgroup
// driver on a unified (cgroup v2) hierarchy; internal/server verifies that
// assumption once at startup (see VerifyCgroupDriver) rather than branching
// on host state here, since the composer must stay pure.
func cgroupsPath(appName string) string {
	return "system.slice:edge-agent-running:" + strings.ReplaceAll(appName, "-", "_")
}

// unionCapabilities adds each capability to every capability set, skipping
// ones already present, so repeated entitlements don't produce duplicates.
func unionCapabilities(s *specs.Spec, caps []string) {
	c := s.Process.Capabilities
	c.Bounding = unionStrings(c.Bounding, caps)
	c.Effective = unionStrings(c.Effective, caps)
	c.Inheritable = unionStrings(c.Inheritable, caps)
	c.Permitted = unionStrings(c.Permitted, caps)
}

func unionStrings(base, add []string) []string {
	seen := make(map[string]bool, len(base))
	for _, v := range base {
		seen[v] = true
	}
	for _, v := range add {
		if !seen[v] {
			base = append(base, v)
			seen[v] = true
		}
	}
	return base
}

func appendNamespace(s *specs.Spec, typ specs.LinuxNamespaceType) {
	for _, ns := range s.Linux.Namespaces {
		if ns.Type == typ {
			return
		}
	}
	s.Linux.Namespaces = append(s.Linux.Namespaces, specs.LinuxNamespace{Type: typ})
}

func removeNamespace(s *specs.Spec, typ specs.LinuxNamespaceType) {
	out := s.Linux.Namespaces[:0]
	for _, ns := range s.Linux.Namespaces {
		if ns.Type != typ {
			out = append(out, ns)
		}
	}
	s.Linux.Namespaces = out
}

func modePtr(m os.FileMode) *os.FileMode { return &m }
func uint32Ptr(v uint32) *uint32         { return &v }
func int64Ptr(v int64) *int64            { return &v }
