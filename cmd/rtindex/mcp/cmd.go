// Package mcpcmd implements the `rtindex mcp` command.
package mcpcmd

import (
	"github.com/spf13/cobra"

	"github.com/go-ports/rtindex/cmd/rtindex/shared"
	internalmcp "github.com/go-ports/rtindex/internal/mcp"
)

// Command implements `rtindex mcp`.
type Command struct {
	ctx *shared.Context
	cmd *cobra.Command
}

// New creates the mcp command.
func New(ctx *shared.Context) *Command {
	c := &Command{ctx: ctx}
	c.cmd = &cobra.Command{
		Use:   "mcp",
		Short: "Start the rtindex MCP server (stdio transport)",
		RunE:  c.run,
	}
	return c
}

// Cmd returns the cobra command.
func (c *Command) Cmd() *cobra.Command { return c.cmd }

func (c *Command) run(cmd *cobra.Command, _ []string) error {
	cfg, err := c.ctx.LoadConfig()
	if err != nil {
		return err
	}
	return internalmcp.Serve(cmd.Context(), cfg)
}
