// Package rootcmd wires the root cobra.Command for the rtindex CLI binary.
package rootcmd

import (
	"github.com/spf13/cobra"

	checkcmd "github.com/go-ports/rtindex/cmd/rtindex/check"
	configcmd "github.com/go-ports/rtindex/cmd/rtindex/config"
	jobscmd "github.com/go-ports/rtindex/cmd/rtindex/jobs"
	mcpcmd "github.com/go-ports/rtindex/cmd/rtindex/mcp"
	rebuildcmd "github.com/go-ports/rtindex/cmd/rtindex/rebuild"
	setupcmd "github.com/go-ports/rtindex/cmd/rtindex/setup"
	"github.com/go-ports/rtindex/cmd/rtindex/shared"
	uninstallcmd "github.com/go-ports/rtindex/cmd/rtindex/uninstall"
	versioncmd "github.com/go-ports/rtindex/cmd/rtindex/version"
)

// New creates and returns the root cobra.Command for the rtindex CLI.
func New() *cobra.Command {
	return NewWithContext(&shared.Context{})
}

// NewWithContext builds the root command around an existing shared context,
// letting callers replace how the service is opened.
func NewWithContext(ctx *shared.Context) *cobra.Command {
	root := &cobra.Command{
		Use:           "rtindex",
		Short:         "rtindex — rebuild real-time search indexes from SQL tables",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return ctx.SetupLogging(cmd.ErrOrStderr())
		},
		RunE: func(cmd *cobra.Command, _ []string) error { return cmd.Help() },
	}

	root.PersistentFlags().StringVar(
		&ctx.ConfigPath, "config", "",
		"Config file (default: $RTINDEX_CONFIG env → ./rtindex.yaml)",
	)
	root.PersistentFlags().StringVar(&ctx.LogLevel, "log-level", "info", "Log level: debug, info, warn, error")
	root.PersistentFlags().StringVar(&ctx.LogFormat, "log-format", "text", "Log format: text or json")

	root.AddCommand(
		rebuildcmd.New(ctx).Cmd(),
		jobscmd.New(ctx).Cmd(),
		checkcmd.New(ctx).Cmd(),
		configcmd.New(ctx).Cmd(),
		mcpcmd.New(ctx).Cmd(),
		setupcmd.New(ctx).Cmd(),
		uninstallcmd.New(ctx).Cmd(),
		versioncmd.New(ctx).Cmd(),
	)

	return root
}
