package ocibuilder

import "errors"

// ErrLegacyCgroupHierarchy is returned by VerifyCgroupDriver when the host
// is not on a unified (cgroup v2) hierarchy, the only one cgroupsPath's
// systemd-slice format is meaningful on.
var ErrLegacyCgroupHierarchy = errors.New("host cgroup hierarchy is not unified (cgroup v2); video/audio entitlement cgroup scoping will not apply as expected")
