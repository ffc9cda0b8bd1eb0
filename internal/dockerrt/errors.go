package dockerrt

import "errors"

// ErrDocker is the sentinel every error this package returns wraps.
var ErrDocker = errors.New("docker runtime error")
