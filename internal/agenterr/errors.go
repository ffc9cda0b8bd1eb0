// Package agenterr provides the error-wrapping ergonomics the daemon's
// packages build on: a sentinel error per failure class, wrapped with
// call-site context, inspectable with errors.Is/errors.As.
package agenterr

import (
	"errors"
	"fmt"

	"github.com/containerd/errdefs"
)

// Wrap attaches a sentinel class to an underlying error. The result
// classifies as an internal failure under Code unless err itself carries a
// more specific containerd errdefs classification.
//
// The returned error unwraps to both sentinel and err, so callers can test
// with errors.Is(err, sentinel) regardless of how deep the wrapping goes.
func Wrap(sentinel, err error) error {
	if err == nil {
		return nil
	}
	return &wrapped{sentinel: sentinel, err: err}
}

// Wrapf is like Wrap but formats a message ahead of the wrapped error.
//
// format may itself contain a trailing %w verb to wrap a third error; the
// sentinel is always preserved as an additional Unwrap target.
func Wrapf(sentinel error, format string, args ...any) error {
	return &wrapped{sentinel: sentinel, err: fmt.Errorf(format, args...)}
}

// Invalid is like Wrapf but marks the result as caused by bad client input,
// so Code reports "invalidArgument" regardless of the underlying message.
func Invalid(sentinel error, format string, args ...any) error {
	return &wrapped{sentinel: sentinel, err: fmt.Errorf(format, args...), invalid: true}
}

type wrapped struct {
	sentinel error
	err      error
	invalid  bool
}

func (w *wrapped) Error() string {
	return fmt.Sprintf("%s: %s", w.sentinel, w.err)
}

// Unwrap exposes both the sentinel and the underlying error so errors.Is
// matches either.
func (w *wrapped) Unwrap() []error {
	return []error{w.sentinel, w.err}
}

// Code classifies err into the wire error taxonomy the ErrorPayload promises:
// "invalidArgument", "notFound", "alreadyExists", or "internalFailure". It
// defers to the underlying containerd errdefs classification where one
// exists, falling back to the invalid flag set by Invalid, and otherwise
// reports an internal failure.
func Code(err error) string {
	switch {
	case errdefs.IsNotFound(err):
		return "notFound"
	case errdefs.IsAlreadyExists(err):
		return "alreadyExists"
	case errdefs.IsInvalidArgument(err):
		return "invalidArgument"
	}

	var w *wrapped
	if errors.As(err, &w) && w.invalid {
		return "invalidArgument"
	}
	return "internalFailure"
}
