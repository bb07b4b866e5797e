// Package jobscmd implements the `rtindex jobs` command.
package jobscmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/go-ports/rtindex/cmd/rtindex/shared"
)

// Command implements `rtindex jobs`.
type Command struct {
	ctx   *shared.Context
	cmd   *cobra.Command
	count bool
}

// New creates the jobs command.
func New(ctx *shared.Context) *Command {
	c := &Command{ctx: ctx}
	c.cmd = &cobra.Command{
		Use:   "jobs",
		Short: "List configured rebuild jobs",
		RunE:  c.run,
	}
	c.cmd.Flags().BoolVar(&c.count, "count", false, "Also count source rows per job (connects to the databases)")
	return c
}

// Cmd returns the cobra command.
func (c *Command) Cmd() *cobra.Command { return c.cmd }

func (c *Command) run(cmd *cobra.Command, _ []string) error {
	cfg, err := c.ctx.LoadConfig()
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	if !c.count {
		fmt.Fprintln(tw, "JOB\tTABLE\tINDEX\tCONDITION")
		for _, j := range cfg.Jobs {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", j.Name, j.Table, j.Index, j.Condition)
		}
		return tw.Flush()
	}

	svc, err := c.ctx.Open(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer svc.Close()

	fmt.Fprintln(tw, "JOB\tTABLE\tINDEX\tCONDITION\tROWS")
	for _, j := range svc.Jobs() {
		n, err := svc.CountSource(cmd.Context(), j.Name)
		if err != nil {
			return err
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\n", j.Name, j.Table, j.Index, j.Condition, n)
	}
	return tw.Flush()
}
