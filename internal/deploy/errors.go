package deploy

import "errors"

var ErrDeploy = errors.New("run-container stream error")
