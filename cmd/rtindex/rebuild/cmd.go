// Package rebuildcmd implements the `rtindex rebuild` command.
package rebuildcmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/go-ports/rtindex/cmd/rtindex/shared"
	"github.com/go-ports/rtindex/internal/config"
	"github.com/go-ports/rtindex/internal/messenger"
	"github.com/go-ports/rtindex/internal/models"
)

// Command implements `rtindex rebuild`.
type Command struct {
	ctx *shared.Context
	cmd *cobra.Command

	all           bool
	chunkLength   int
	sleepTime     int
	noSleep       bool
	condition     string
	quietProgress bool
}

// New creates the rebuild command.
func New(ctx *shared.Context) *Command {
	c := &Command{ctx: ctx}
	c.cmd = &cobra.Command{
		Use:   "rebuild [job...]",
		Short: "Truncate and refill RT indexes from their source tables",
		Long: `Rebuild truncates each target index and refills it in chunks, newest rows
first. Searches against an index return partial results until its rebuild
finishes. Jobs run one after another and the first failure stops the run.`,
		RunE: c.run,
	}
	f := c.cmd.Flags()
	f.BoolVar(&c.all, "all", false, "Rebuild every configured job")
	f.IntVar(&c.chunkLength, "chunk-length", 0, "Rows per chunk (overrides config)")
	f.IntVar(&c.sleepTime, "sleep-time", 0, "Seconds to pause between chunks; 0 disables the pause")
	f.BoolVar(&c.noSleep, "no-sleep", false, "Do not pause between chunks")
	f.StringVar(&c.condition, "condition", "", "SQL filter replacing the job condition (without WHERE)")
	f.BoolVar(&c.quietProgress, "quiet-progress", false, "Suppress per-chunk progress output")
	return c
}

// Cmd returns the cobra command.
func (c *Command) Cmd() *cobra.Command { return c.cmd }

func (c *Command) run(cmd *cobra.Command, args []string) error {
	if !c.all && len(args) == 0 {
		return errors.New("specify one or more job names, or --all")
	}
	if c.all && len(args) > 0 {
		return errors.New("--all cannot be combined with job names")
	}

	cfg, err := c.ctx.LoadConfig()
	if err != nil {
		return err
	}
	for _, name := range args {
		if _, ok := cfg.Job(name); !ok {
			return fmt.Errorf("unknown job %q", name)
		}
	}
	if cmd.Flags().Changed("condition") {
		for i := range cfg.Jobs {
			cfg.Jobs[i].Condition = c.condition
		}
	}

	svc, err := c.ctx.Open(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer svc.Close()

	out := cmd.OutOrStdout()
	var msg messenger.Messenger = messenger.NewWriter(out)
	if c.quietProgress {
		msg = messenger.Discard
	}

	overrides := c.overrides(cmd)
	var results []models.RebuildResult
	if c.all {
		results, err = svc.RebuildAll(cmd.Context(), overrides, msg)
	} else {
		for _, name := range args {
			var res *models.RebuildResult
			res, err = svc.Rebuild(cmd.Context(), name, overrides, msg)
			if res != nil {
				results = append(results, *res)
			}
			if err != nil {
				break
			}
		}
	}

	for _, r := range results {
		fmt.Fprintf(out, "%s: %d/%d rows written into %s in %d chunk(s) (%s)\n",
			r.Job, r.Rows, r.Found, r.Index, r.Chunks, r.Duration.Round(time.Millisecond))
	}
	return err
}

// overrides collects the option flags the user actually set.
func (c *Command) overrides(cmd *cobra.Command) map[string]any {
	out := make(map[string]any)
	f := cmd.Flags()
	if f.Changed("chunk-length") {
		out[config.KeyChunkLength] = c.chunkLength
	}
	if f.Changed("sleep-time") {
		out[config.KeySleepTime] = c.sleepTime
	}
	if c.noSleep {
		out[config.KeySleepAfterChunk] = false
	}
	return out
}
