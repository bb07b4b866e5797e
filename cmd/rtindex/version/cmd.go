// Package versioncmd implements the `rtindex version` command.
package versioncmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/go-ports/rtindex/cmd/rtindex/shared"
	"github.com/go-ports/rtindex/internal/buildinfo"
)

// Command implements `rtindex version`.
type Command struct {
	ctx *shared.Context
	cmd *cobra.Command
}

// New creates the version command.
func New(ctx *shared.Context) *Command {
	c := &Command{ctx: ctx}
	c.cmd = &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		RunE:  c.run,
	}
	return c
}

// Cmd returns the cobra command.
func (c *Command) Cmd() *cobra.Command { return c.cmd }

func (*Command) run(cmd *cobra.Command, _ []string) error {
	fmt.Fprintf(cmd.OutOrStdout(), "rtindex %s (commit %s, branch %s, built %s)\n",
		buildinfo.Version, buildinfo.GitCommit, buildinfo.GitBranch, buildinfo.BuildDate)
	return nil
}
