package layered

import "errors"

var ErrLayered = errors.New("run-container-layered error")
