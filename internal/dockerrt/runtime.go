package dockerrt

import (
	"context"
	"io"
	"log/slog"

	cerrdefs "github.com/containerd/errdefs"
	"github.com/cruciblehq/edged/internal/agenterr"
	"github.com/cruciblehq/edged/internal/ocibuilder"
	"github.com/cruciblehq/edged/internal/restartpolicy"
	"github.com/moby/moby/api/types/container"
	"github.com/moby/moby/client"
)

// Runtime is a thin wrapper around the Docker engine API, used as the
// run-container (Docker/CLI path) fallback for hosts without containerd.
type Runtime struct {
	cli *client.Client
}

// New connects to the Docker daemon. An empty host defers to the standard
// DOCKER_HOST/DOCKER_API_VERSION environment variables.
func New(host string) (*Runtime, error) {
	opts := []client.Opt{client.WithAPIVersionNegotiation()}
	if host != "" {
		opts = append(opts, client.WithHost(host))
	} else {
		opts = append(opts, client.FromEnv)
	}

	cli, err := client.New(opts...)
	if err != nil {
		return nil, agenterr.Wrap(ErrDocker, err)
	}
	return &Runtime{cli: cli}, nil
}

// Ping verifies the daemon is reachable, used to probe whether the Docker
// fallback is viable at startup and for the health endpoint.
func (r *Runtime) Ping(ctx context.Context) error {
	_, err := r.cli.Ping(ctx, client.PingOptions{})
	if err != nil {
		return agenterr.Wrap(ErrDocker, err)
	}
	return nil
}

// Close releases the underlying HTTP client's connections.
func (r *Runtime) Close() error {
	return r.cli.Close()
}

// LoadArchive imports a tar archive (as produced by the run-container
// Docker-path stream) into the local image store. The archive must tag the
// image it contains; nothing here assigns a name.
func (r *Runtime) LoadArchive(ctx context.Context, archive io.Reader) error {
	resp, err := r.cli.ImageLoad(ctx, archive)
	if err != nil {
		return agenterr.Wrap(ErrDocker, err)
	}
	defer resp.Close()

	if _, err := io.Copy(io.Discard, resp); err != nil {
		return agenterr.Wrap(ErrDocker, err)
	}
	return nil
}

// ContainerSpec describes the container dockerrt.Run should create, derived
// from an OCI composition (internal/ocibuilder) plus the image tag and
// restart policy a deploy carries.
type ContainerSpec struct {
	Name          string
	Image         string
	Cmd           []string
	Env           []string
	WorkingDir    string
	RestartPolicy restartpolicy.Policy
	Composed      *ocibuilder.Result
	SecurityOpt   []string // e.g. "seccomp=unconfined" for a debug deploy
	Labels        map[string]string
}

// Stop kills and removes the named container. A missing container is not an
// error.
func (r *Runtime) Stop(ctx context.Context, name string) error {
	if _, err := r.cli.ContainerRemove(ctx, name, client.ContainerRemoveOptions{Force: true, RemoveVolumes: true}); err != nil {
		if cerrdefs.IsNotFound(err) {
			return nil
		}
		return agenterr.Wrap(ErrDocker, err)
	}
	return nil
}

// Run stops any existing container with spec.Name, creates a new one
// translated from spec, and starts it.
func (r *Runtime) Run(ctx context.Context, spec ContainerSpec) error {
	if err := r.Stop(ctx, spec.Name); err != nil {
		return err
	}

	hostConfig := translateHostConfig(spec)

	resp, err := r.cli.ContainerCreate(ctx, client.ContainerCreateOptions{
		Name: spec.Name,
		Config: &container.Config{
			Image:      spec.Image,
			Cmd:        spec.Cmd,
			Env:        spec.Env,
			WorkingDir: spec.WorkingDir,
			Labels:     spec.Labels,
		},
		HostConfig: hostConfig,
	})
	if err != nil {
		return agenterr.Wrap(ErrDocker, err)
	}

	if _, err := r.cli.ContainerStart(ctx, resp.ID, client.ContainerStartOptions{}); err != nil {
		return agenterr.Wrap(ErrDocker, err)
	}

	slog.Debug("docker container started", "name", spec.Name, "image", spec.Image)
	return nil
}

// translateHostConfig carries the OCI composition's network mode, cgroup
// path, and device/capability grants into their Docker HostConfig
// equivalents, the same mutations internal/ocibuilder applies to a raw OCI
// spec for the containerd path.
func translateHostConfig(spec ContainerSpec) *container.HostConfig {
	hc := &container.HostConfig{
		RestartPolicy: translateRestartPolicy(spec.RestartPolicy),
		SecurityOpt:   spec.SecurityOpt,
	}

	if spec.Composed == nil {
		return hc
	}

	if spec.Composed.NetworkMode == "none" {
		hc.NetworkMode = "none"
	} else {
		hc.NetworkMode = "host"
	}

	hc.CgroupParent = spec.Composed.CgroupsPath

	if spec.Composed.Spec != nil && spec.Composed.Spec.Process != nil && spec.Composed.Spec.Process.Capabilities != nil {
		hc.CapAdd = spec.Composed.Spec.Process.Capabilities.Bounding
	}

	if spec.Composed.Spec != nil {
		for _, dev := range spec.Composed.Spec.Linux.Devices {
			hc.Devices = append(hc.Devices, container.DeviceMapping{
				PathOnHost:        dev.Path,
				PathInContainer:   dev.Path,
				CgroupPermissions: "rwm",
			})
		}
	}

	return hc
}

// translateRestartPolicy assumes p has already been resolved
// (restartpolicy.Policy.Resolve) so Kind is never Default.
func translateRestartPolicy(p restartpolicy.Policy) container.RestartPolicy {
	switch p.Kind {
	case restartpolicy.No:
		return container.RestartPolicy{Name: container.RestartPolicyDisabled}
	case restartpolicy.OnFailure:
		return container.RestartPolicy{Name: container.RestartPolicyOnFailure, MaximumRetryCount: int(p.MaxRetries)}
	default:
		return container.RestartPolicy{Name: container.RestartPolicyUnlessStopped}
	}
}
