// Package uninstallcmd implements the `rtindex uninstall` command group.
package uninstallcmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/go-ports/rtindex/cmd/rtindex/shared"
	"github.com/go-ports/rtindex/internal/setup"
)

// Command implements `rtindex uninstall`.
type Command struct {
	ctx *shared.Context
	cmd *cobra.Command
}

// New creates the uninstall command group.
func New(ctx *shared.Context) *Command {
	c := &Command{ctx: ctx}
	c.cmd = &cobra.Command{
		Use:   "uninstall",
		Short: "Remove the rtindex MCP server from an agent",
		RunE:  func(cmd *cobra.Command, _ []string) error { return cmd.Help() },
	}
	c.cmd.AddCommand(
		newUninstallClaudeCode(ctx),
		newUninstallCursor(ctx),
		newUninstallCodex(ctx),
		newUninstallOpencode(ctx),
	)
	return c
}

// Cmd returns the cobra command.
func (c *Command) Cmd() *cobra.Command { return c.cmd }

func newUninstallClaudeCode(_ *shared.Context) *cobra.Command {
	var configDir string
	var project bool
	cmd := &cobra.Command{
		Use:   "claude-code",
		Short: "Remove the MCP server from Claude Code",
		RunE: func(cmd *cobra.Command, _ []string) error {
			target := shared.ResolveAgentDir(".claude", configDir, project)
			result := setup.UninstallClaudeCode(target, project)
			fmt.Fprintln(cmd.OutOrStdout(), result.Message)
			return nil
		},
	}
	cmd.Flags().StringVar(&configDir, "config-dir", "", "Path to .claude directory")
	cmd.Flags().BoolVar(&project, "project", false, "Uninstall from current project instead of globally")
	return cmd
}

func newUninstallCursor(_ *shared.Context) *cobra.Command {
	var configDir string
	cmd := &cobra.Command{
		Use:   "cursor",
		Short: "Remove the MCP server from Cursor",
		RunE: func(cmd *cobra.Command, _ []string) error {
			target := shared.ResolveAgentDir(".cursor", configDir, false)
			result := setup.UninstallCursor(target)
			fmt.Fprintln(cmd.OutOrStdout(), result.Message)
			return nil
		},
	}
	cmd.Flags().StringVar(&configDir, "config-dir", "", "Path to .cursor directory")
	return cmd
}

func newUninstallCodex(_ *shared.Context) *cobra.Command {
	var configDir string
	cmd := &cobra.Command{
		Use:   "codex",
		Short: "Remove the MCP server from Codex",
		RunE: func(cmd *cobra.Command, _ []string) error {
			target := shared.ResolveAgentDir(".codex", configDir, false)
			result := setup.UninstallCodex(target)
			fmt.Fprintln(cmd.OutOrStdout(), result.Message)
			return nil
		},
	}
	cmd.Flags().StringVar(&configDir, "config-dir", "", "Path to .codex directory")
	return cmd
}

func newUninstallOpencode(_ *shared.Context) *cobra.Command {
	var project bool
	cmd := &cobra.Command{
		Use:   "opencode",
		Short: "Remove the MCP server from OpenCode",
		RunE: func(cmd *cobra.Command, _ []string) error {
			result := setup.UninstallOpencode(setup.OpencodeConfigPath(project))
			fmt.Fprintln(cmd.OutOrStdout(), result.Message)
			return nil
		},
	}
	cmd.Flags().BoolVar(&project, "project", false, "Uninstall from current project instead of globally")
	return cmd
}
