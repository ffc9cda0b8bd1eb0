package selfupdate

import "errors"

var ErrSelfUpdate = errors.New("self-update error")
