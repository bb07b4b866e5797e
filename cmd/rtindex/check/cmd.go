// Package checkcmd implements the `rtindex check` command.
package checkcmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/go-ports/rtindex/cmd/rtindex/shared"
)

// Command implements `rtindex check`.
type Command struct {
	ctx *shared.Context
	cmd *cobra.Command
}

// New creates the check command.
func New(ctx *shared.Context) *Command {
	c := &Command{ctx: ctx}
	c.cmd = &cobra.Command{
		Use:   "check <index>",
		Short: "Check whether an index exists on the search daemon",
		Args:  cobra.ExactArgs(1),
		RunE:  c.run,
	}
	return c
}

// Cmd returns the cobra command.
func (c *Command) Cmd() *cobra.Command { return c.cmd }

func (c *Command) run(cmd *cobra.Command, args []string) error {
	svc, err := c.ctx.OpenService(cmd.Context())
	if err != nil {
		return err
	}
	defer svc.Close()

	ok, err := svc.IndexExists(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("index [%s] not present", args[0])
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Index %s exists.\n", args[0])
	return nil
}
