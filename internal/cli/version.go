package cli

import (
	"context"
	"fmt"

	"github.com/cruciblehq/edged/internal"
)

// VersionCmd is the 'edged version' command.
type VersionCmd struct{}

// Run prints the daemon's version string.
func (c *VersionCmd) Run(ctx context.Context) error {
	fmt.Println(internal.VersionString())
	return nil
}
