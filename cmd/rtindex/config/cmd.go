// Package configcmd implements the `rtindex config` command group.
package configcmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/go-ports/rtindex/cmd/rtindex/shared"
	"github.com/go-ports/rtindex/internal/config"
	"github.com/go-ports/rtindex/internal/redaction"
)

// Command implements `rtindex config`.
type Command struct {
	ctx *shared.Context
	cmd *cobra.Command
}

// New creates the config command group.
func New(ctx *shared.Context) *Command {
	c := &Command{ctx: ctx}
	c.cmd = &cobra.Command{
		Use:   "config",
		Short: "Show or manage configuration",
		RunE:  c.runShow,
	}
	c.cmd.AddCommand(newConfigInit(ctx))
	return c
}

// Cmd returns the cobra command.
func (c *Command) Cmd() *cobra.Command { return c.cmd }

func (c *Command) runShow(cmd *cobra.Command, _ []string) error {
	path, source := config.ResolveConfigPath(c.ctx.ConfigPath)
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	jobs := make([]map[string]any, 0, len(cfg.Jobs))
	for _, j := range cfg.Jobs {
		jobs = append(jobs, map[string]any{
			"name":      j.Name,
			"table":     j.Table,
			"index":     j.Index,
			"condition": j.Condition,
			"id_column": j.ID(),
			"columns":   len(j.Columns),
			"options":   cfg.JobOptions(j, nil).ToMap(),
		})
	}
	data := map[string]any{
		"source": map[string]any{
			"driver": cfg.Source.Driver,
			"dsn":    redaction.DSN(cfg.Source.Driver, cfg.Source.DSN),
		},
		"searchd": map[string]any{
			"dsn": redaction.DSN("searchd", cfg.Searchd.DSN),
		},
		"messenger":     messengerName(cfg.Messenger),
		"jobs":          jobs,
		"config_path":   path,
		"config_source": source,
	}
	b, err := yaml.Marshal(data)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), string(b))
	return nil
}

func messengerName(m string) string {
	if m == "" {
		return "writer"
	}
	return m
}

// ---------------------------------------------------------------------------
// config init
// ---------------------------------------------------------------------------

func newConfigInit(ctx *shared.Context) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Generate a starter rtindex.yaml",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfgPath, _ := config.ResolveConfigPath(ctx.ConfigPath)
			out := cmd.OutOrStdout()
			if _, err := os.Stat(cfgPath); err == nil && !force {
				fmt.Fprintf(out, "Config already exists at %s\n", cfgPath)
				fmt.Fprintln(out, "Use --force to overwrite.")
				return nil
			}
			if err := os.MkdirAll(filepath.Dir(cfgPath), 0o755); err != nil {
				return err
			}
			if err := os.WriteFile(cfgPath, []byte(config.Template), 0o600); err != nil {
				return err
			}
			fmt.Fprintf(out, "Created %s\n", cfgPath)
			fmt.Fprintln(out, "Edit the file to configure your source database and jobs.")
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing config")
	return cmd
}
