// Package imagename validates the image names carried on the wire before
// they reach a runtime, following the same distribution/reference grammar
// the registry and daemon code in the example pack (moby-moby's
// daemon/internal/distribution package) parses tags and digests with.
package imagename

import "github.com/distribution/reference"

// Validate rejects a name that reference.ParseNormalizedNamed would reject:
// anything containing characters outside the registry/repository/tag
// grammar, or with an empty component. It does not require a registry or
// tag; "cam" and "cam:latest" both validate.
func Validate(name string) error {
	_, err := reference.ParseNormalizedNamed(name)
	return err
}
