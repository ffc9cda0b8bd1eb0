package orchestrator

import (
	"github.com/cruciblehq/edged/internal/restartpolicy"
	"github.com/cruciblehq/edged/internal/snapshot"
)

// DeployRequest carries everything Deploy needs to create or update one
// application's container and task.
type DeployRequest struct {
	AppName       string
	Cmd           string
	Cwd           string
	Layers        []snapshot.LayerDescriptor
	AppConfigBlob []byte
	RestartPolicy restartpolicy.Policy
	Debug         bool
}

// RunningState mirrors the containerd task state for one application.
type RunningState string

const (
	StateRunning RunningState = "running"
	StateStopped RunningState = "stopped"
)

// Status is one row of the List operation: a container joined with its
// task, if any.
type Status struct {
	AppName      string
	AppVersion   string
	RunningState RunningState
	FailureCount uint32
}
