package orchestrator

import "errors"

var (
	ErrOrchestrator  = errors.New("orchestrator error")
	ErrEmptyManifest = errors.New("image manifest has no layers")
)
