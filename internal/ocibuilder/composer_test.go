package ocibuilder

import (
	"testing"

	"github.com/cruciblehq/edged/internal/entitlements"
	specs "github.com/opencontainers/runtime-spec/specs-go"
)

func hasCap(caps []string, name string) bool {
	for _, c := range caps {
		if c == name {
			return true
		}
	}
	return false
}

func hasNamespace(s *specs.Spec, typ specs.LinuxNamespaceType) bool {
	for _, ns := range s.Linux.Namespaces {
		if ns.Type == typ {
			return true
		}
	}
	return false
}

func TestComposeBaseProfile(t *testing.T) {
	res := Compose("cam", "/bin/cam", "", nil)

	if res.Spec.Version != "1.0.3" {
		t.Fatalf("Version = %q, want 1.0.3", res.Spec.Version)
	}
	if res.Spec.Process.Cwd != "/" {
		t.Fatalf("Cwd = %q, want /", res.Spec.Process.Cwd)
	}
	if len(res.Spec.Process.Args) != 1 || res.Spec.Process.Args[0] != "/bin/cam" {
		t.Fatalf("Args = %v, want [/bin/cam]-ish", res.Spec.Process.Args)
	}
	if !hasCap(res.Spec.Process.Capabilities.Bounding, "CAP_SYS_PTRACE") {
		t.Fatal("base profile should grant CAP_SYS_PTRACE")
	}
	if res.NetworkMode != "host" {
		t.Fatalf("NetworkMode = %q, want host (default)", res.NetworkMode)
	}
	if hasNamespace(res.Spec, specs.NetworkNamespace) {
		t.Fatal("host networking should not add a network namespace")
	}
}

func TestComposeVideoEntitlement(t *testing.T) {
	res := Compose("cam", "/bin/cam", "", []entitlements.Entitlement{
		{Kind: entitlements.KindVideo},
	})

	found := false
	for _, d := range res.Spec.Linux.Devices {
		if d.Path == "/dev/video0" && d.Major == videoDeviceMajor && d.Minor == videoDeviceMinor {
			found = true
		}
	}
	if !found {
		t.Fatal("expected /dev/video0 device entry")
	}
	if !hasCap(res.Spec.Process.Capabilities.Bounding, "CAP_SYS_CHROOT") {
		t.Fatal("video entitlement should union in video capability set")
	}
	if res.CgroupsPath != "system.slice:edge-agent-running:cam" {
		t.Fatalf("CgroupsPath = %q", res.CgroupsPath)
	}
	if len(res.Spec.Linux.Resources.Devices) != 2 || res.Spec.Linux.Resources.Devices[0].Allow {
		t.Fatalf("device cgroup rules must start with a deny-all: %+v", res.Spec.Linux.Resources.Devices)
	}
	if !hasNamespace(res.Spec, specs.CgroupNamespace) {
		t.Fatal("video entitlement should add a cgroup namespace")
	}
}

func TestComposeNetworkNonePlusVideo(t *testing.T) {
	res := Compose("cam-app", "/bin/cam", "", []entitlements.Entitlement{
		{Kind: entitlements.KindVideo},
		{Kind: entitlements.KindNetwork, Network: entitlements.Network{Mode: entitlements.NetworkNone}},
	})

	if res.NetworkMode != "none" {
		t.Fatalf("NetworkMode = %q, want none", res.NetworkMode)
	}
	if !hasNamespace(res.Spec, specs.NetworkNamespace) {
		t.Fatal("network.none should add a network namespace")
	}
	if len(res.Spec.Linux.Devices) == 0 {
		t.Fatal("video entitlement mutation should still apply alongside network.none")
	}
	if res.CgroupsPath != "system.slice:edge-agent-running:cam_app" {
		t.Fatalf("CgroupsPath = %q, want dashes replaced with underscores", res.CgroupsPath)
	}
}

func TestComposeBluetoothCapabilities(t *testing.T) {
	res := Compose("bt", "/bin/bt", "", []entitlements.Entitlement{
		{Kind: entitlements.KindBluetooth, Bluetooth: entitlements.Bluetooth{Mode: entitlements.BluetoothKernel}},
	})

	if !hasCap(res.Spec.Process.Capabilities.Effective, "CAP_NET_ADMIN") {
		t.Fatal("bluetooth entitlement should grant CAP_NET_ADMIN")
	}
	if !hasCap(res.Spec.Process.Capabilities.Effective, "CAP_NET_RAW") {
		t.Fatal("bluetooth entitlement should grant CAP_NET_RAW")
	}
}

func TestComposeUnknownEntitlementIgnored(t *testing.T) {
	res := Compose("cam", "/bin/cam", "", []entitlements.Entitlement{{Kind: "gpu"}})
	if len(res.Spec.Linux.Devices) != 0 {
		t.Fatal("unrecognized entitlement should not mutate the spec")
	}
}

func TestMarshalIsDeterministic(t *testing.T) {
	res := Compose("cam", "/bin/cam", "", []entitlements.Entitlement{{Kind: entitlements.KindVideo}})

	a, err := res.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	b, err := res.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(a) != string(b) {
		t.Fatal("Marshal should be deterministic for the same spec")
	}
}
