package orchestrator

import (
	"context"
	"log/slog"
	"sync"
	"syscall"

	containerd "github.com/containerd/containerd/v2/client"
	"github.com/containerd/containerd/v2/core/containers"
	"github.com/containerd/containerd/v2/core/images"
	"github.com/containerd/containerd/v2/pkg/cio"
	"github.com/containerd/errdefs"
	"github.com/containerd/typeurl/v2"
	"github.com/cruciblehq/edged/internal/agenterr"
	"github.com/cruciblehq/edged/internal/content"
	"github.com/cruciblehq/edged/internal/entitlements"
	"github.com/cruciblehq/edged/internal/ocibuilder"
	"github.com/cruciblehq/edged/internal/restartpolicy"
	"github.com/cruciblehq/edged/internal/snapshot"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
)

// SnapshotterName is the containerd snapshotter every orchestrated
// container's snapshots are created under. internal/server binds the
// snapshot.Builder and SnapshotService it passes to New using this same
// name, so a mismatch between the two would surface immediately as
// snapshots the orchestrator can't find.
const SnapshotterName = "fuse-overlayfs"

const (
	ociRuntime = "io.containerd.runc.v2"

	labelAppVersion = "app.version"
	labelFailures   = "restart.count"
)

// Orchestrator drives the container and task lifecycle for every deployed
// application, scoped to a single containerd namespace.
type Orchestrator struct {
	client    *containerd.Client
	content   *content.Client
	snapshots *snapshot.Builder

	appLocks   map[string]*sync.Mutex
	appLocksMu sync.Mutex
}

// New binds an Orchestrator to an already-connected containerd client,
// content client, and snapshot builder.
func New(client *containerd.Client, contentClient *content.Client, snapshots *snapshot.Builder) *Orchestrator {
	return &Orchestrator{
		client:    client,
		content:   contentClient,
		snapshots: snapshots,
		appLocks:  make(map[string]*sync.Mutex),
	}
}

// Content exposes the content-store client backing this Orchestrator so
// internal/server can serve listLayers and writeLayer directly against it
// without duplicating the containerd content wiring.
func (o *Orchestrator) Content() *content.Client {
	return o.content
}

// lockApp returns the mutex serializing deploys for appName, creating one on
// first use. Deploys for different apps never contend on this map beyond the
// brief critical section needed to look up or insert their own lock.
func (o *Orchestrator) lockApp(appName string) *sync.Mutex {
	o.appLocksMu.Lock()
	defer o.appLocksMu.Unlock()

	l, ok := o.appLocks[appName]
	if !ok {
		l = &sync.Mutex{}
		o.appLocks[appName] = l
	}
	return l
}

// Deploy creates or updates the container and task for req.AppName,
// following the eleven-step sequence: kill the old task in the background
// while the new image, manifest, spec, and snapshot chain are built; then
// create or update the container record; await the old task's death;
// delete it; and start a fresh task.
//
// Concurrent deploys for the same appName are serialized by a per-app mutex
// so they can't race and violate the one-task-per-app invariant; deploys for
// distinct apps proceed fully in parallel.
func (o *Orchestrator) Deploy(ctx context.Context, req DeployRequest) error {
	lock := o.lockApp(req.AppName)
	lock.Lock()
	defer lock.Unlock()

	killDone := o.killExistingTaskAsync(ctx, req.AppName)

	configDesc, err := o.uploadConfig(ctx, req.Cmd, req.Layers)
	if err != nil {
		return agenterr.Wrap(ErrOrchestrator, err)
	}

	manifestDesc, err := o.uploadManifest(ctx, configDesc, req.Layers)
	if err != nil {
		return agenterr.Wrap(ErrOrchestrator, err)
	}

	if err := o.createOrUpdateImage(ctx, req.AppName, manifestDesc); err != nil {
		return agenterr.Wrap(ErrOrchestrator, err)
	}

	manifest := entitlements.Decode(req.AppName, req.AppConfigBlob)
	policy := req.RestartPolicy.Resolve(req.Debug)
	labels := map[string]string{
		labelAppVersion:     manifest.Version,
		restartpolicy.Label: policy.LabelValue(),
	}

	composed := ocibuilder.Compose(req.AppName, req.Cmd, req.Cwd, manifest.Entitlements)

	chain, err := o.snapshots.Build(ctx, req.AppName, req.Layers)
	if err != nil {
		return agenterr.Wrap(ErrOrchestrator, err)
	}

	ctr, err := o.createOrUpdateContainer(ctx, req.AppName, composed.Spec, chain.SnapshotKey, labels)
	if err != nil {
		return agenterr.Wrap(ErrOrchestrator, err)
	}

	<-killDone

	if err := deleteTask(ctx, ctr); err != nil {
		return agenterr.Wrap(ErrOrchestrator, err)
	}

	task, err := createTask(ctx, ctr)
	if err != nil {
		return agenterr.Wrap(ErrOrchestrator, err)
	}

	if err := task.Start(ctx); err != nil {
		return agenterr.Wrap(ErrOrchestrator, err)
	}

	return nil
}

// killExistingTaskAsync starts killing appName's current task, if any, in
// the background and returns a channel closed once the kill attempt (or the
// discovery that there was nothing to kill) has finished.
func (o *Orchestrator) killExistingTaskAsync(ctx context.Context, appName string) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)

		ctr, err := o.client.LoadContainer(ctx, appName)
		if err != nil {
			return
		}
		task, err := ctr.Task(ctx, nil)
		if err != nil {
			return
		}
		if err := task.Kill(ctx, syscall.SIGKILL); err != nil && !errdefs.IsNotFound(err) {
			slog.Warn("kill existing task failed", "app", appName, "error", err)
			return
		}
		exitCh, err := task.Wait(ctx)
		if err != nil {
			return
		}
		<-exitCh
	}()
	return done
}

// uploadConfig builds and uploads the image config blob, returning its
// descriptor.
func (o *Orchestrator) uploadConfig(ctx context.Context, cmd string, layers []snapshot.LayerDescriptor) (ocispec.Descriptor, error) {
	cfg := buildConfig(cmd, layers)
	d, size, err := o.content.UploadJSON(ctx, cfg)
	if err != nil {
		return ocispec.Descriptor{}, err
	}
	return ocispec.Descriptor{
		MediaType: ocispec.MediaTypeImageConfig,
		Digest:    d,
		Size:      size,
	}, nil
}

// uploadManifest builds and uploads the image manifest blob, returning its
// descriptor.
func (o *Orchestrator) uploadManifest(ctx context.Context, configDesc ocispec.Descriptor, layers []snapshot.LayerDescriptor) (ocispec.Descriptor, error) {
	manifest := buildManifest(configDesc, layers)
	d, size, err := o.content.UploadJSON(ctx, manifest)
	if err != nil {
		return ocispec.Descriptor{}, err
	}
	return ocispec.Descriptor{
		MediaType: manifest.MediaType,
		Digest:    d,
		Size:      size,
	}, nil
}

// createOrUpdateImage creates the named image pointing at target, updating
// it in place if it already exists.
func (o *Orchestrator) createOrUpdateImage(ctx context.Context, name string, target ocispec.Descriptor) error {
	is := o.client.ImageService()
	img := images.Image{Name: name, Target: target}

	if _, err := is.Create(ctx, img); err != nil {
		if !errdefs.IsAlreadyExists(err) {
			return err
		}
		if _, err := is.Update(ctx, img, "target"); err != nil {
			return err
		}
	}
	return nil
}

// createOrUpdateContainer creates appName's container record, updating it
// in place if it already exists.
func (o *Orchestrator) createOrUpdateContainer(ctx context.Context, appName string, spec any, snapshotKey string, labels map[string]string) (containerd.Container, error) {
	specAny, err := typeurl.MarshalAny(spec)
	if err != nil {
		return nil, err
	}

	record := containers.Container{
		ID:          appName,
		Image:       appName,
		Snapshotter: SnapshotterName,
		SnapshotKey: snapshotKey,
		Spec:        specAny,
		Runtime:     containers.RuntimeInfo{Name: ociRuntime},
		Labels:      labels,
	}

	cs := o.client.ContainerService()
	if _, err := cs.Create(ctx, record); err != nil {
		if !errdefs.IsAlreadyExists(err) {
			return nil, err
		}
		if _, err := cs.Update(ctx, record, "image", "snapshotter", "snapshotkey", "spec", "labels"); err != nil {
			return nil, err
		}
	}

	return o.client.LoadContainer(ctx, appName)
}

// deleteTask removes appName's task, if one still exists. notFound is not
// an error: the task may already have been deleted by the async kill.
func deleteTask(ctx context.Context, ctr containerd.Container) error {
	task, err := ctr.Task(ctx, nil)
	if err != nil {
		if errdefs.IsNotFound(err) {
			return nil
		}
		return err
	}
	if _, err := task.Delete(ctx, containerd.WithProcessKill); err != nil && !errdefs.IsNotFound(err) {
		return err
	}
	return nil
}

// createTask starts a new task bound to the container's stored snapshot.
// An alreadyExists outcome means a stale task survived the delete above; it
// is removed and creation is retried once.
func createTask(ctx context.Context, ctr containerd.Container) (containerd.Task, error) {
	task, err := ctr.NewTask(ctx, cio.NullIO)
	if err == nil {
		return task, nil
	}
	if !errdefs.IsAlreadyExists(err) {
		return nil, err
	}

	if stale, staleErr := ctr.Task(ctx, nil); staleErr == nil {
		stale.Kill(ctx, syscall.SIGKILL)
		stale.Delete(ctx, containerd.WithProcessKill)
	}

	return ctr.NewTask(ctx, cio.NullIO)
}

// Stop sends SIGKILL to appName's task. notFound, at either the container
// or the task, is not an error.
func (o *Orchestrator) Stop(ctx context.Context, appName string) error {
	ctr, err := o.client.LoadContainer(ctx, appName)
	if err != nil {
		if errdefs.IsNotFound(err) {
			return nil
		}
		return agenterr.Wrap(ErrOrchestrator, err)
	}

	task, err := ctr.Task(ctx, nil)
	if err != nil {
		if errdefs.IsNotFound(err) {
			return nil
		}
		return agenterr.Wrap(ErrOrchestrator, err)
	}

	if err := task.Kill(ctx, syscall.SIGKILL); err != nil && !errdefs.IsNotFound(err) {
		return agenterr.Wrap(ErrOrchestrator, err)
	}
	return nil
}

// List joins the container store with the task list, one row per
// application.
func (o *Orchestrator) List(ctx context.Context) ([]Status, error) {
	containerList, err := o.client.Containers(ctx)
	if err != nil {
		return nil, agenterr.Wrap(ErrOrchestrator, err)
	}

	statuses := make([]Status, 0, len(containerList))
	for _, ctr := range containerList {
		info, err := ctr.Info(ctx)
		if err != nil {
			continue
		}

		state := StateStopped
		if task, err := ctr.Task(ctx, nil); err == nil {
			if taskStatus, err := task.Status(ctx); err == nil && taskStatus.Status == containerd.Running {
				state = StateRunning
			}
		}

		statuses = append(statuses, Status{
			AppName:      info.ID,
			AppVersion:   info.Labels[labelAppVersion],
			RunningState: state,
			FailureCount: failureCount(info.Labels),
		})
	}

	return statuses, nil
}

func failureCount(labels map[string]string) uint32 {
	v, ok := labels[labelFailures]
	if !ok {
		return 0
	}
	var n uint32
	for _, c := range v {
		if c < '0' || c > '9' {
			return 0
		}
		n = n*10 + uint32(c-'0')
	}
	return n
}
