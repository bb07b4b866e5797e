// Package shared holds the context passed to all CLI commands.
package shared

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-ports/rtindex/internal/config"
	"github.com/go-ports/rtindex/internal/service"
)

// Context carries global CLI state (flags set on the root command).
type Context struct {
	// ConfigPath overrides the config file location.
	// When empty, resolution falls through to RTINDEX_CONFIG env var → ./rtindex.yaml.
	ConfigPath string
	LogLevel   string
	LogFormat  string

	// NewService opens the service for a loaded config. Defaults to service.New.
	NewService func(ctx context.Context, cfg *config.File) (*service.Service, error)
}

// SetupLogging installs the default slog logger writing to w.
func (c *Context) SetupLogging(w io.Writer) error {
	var level slog.Level
	if c.LogLevel != "" {
		if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
			return fmt.Errorf("invalid --log-level %q: %w", c.LogLevel, err)
		}
	}
	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	switch strings.ToLower(c.LogFormat) {
	case "", "text":
		h = slog.NewTextHandler(w, opts)
	case "json":
		h = slog.NewJSONHandler(w, opts)
	default:
		return fmt.Errorf("invalid --log-format %q (want text or json)", c.LogFormat)
	}
	slog.SetDefault(slog.New(h))
	return nil
}

// LoadConfig resolves, loads and validates the config file.
func (c *Context) LoadConfig() (*config.File, error) {
	path, source := config.ResolveConfigPath(c.ConfigPath)
	slog.Debug("loading config", "path", path, "source", source)
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// OpenService loads the config and opens the service.
func (c *Context) OpenService(ctx context.Context) (*service.Service, error) {
	cfg, err := c.LoadConfig()
	if err != nil {
		return nil, err
	}
	return c.Open(ctx, cfg)
}

// Open opens the service for an already loaded config.
func (c *Context) Open(ctx context.Context, cfg *config.File) (*service.Service, error) {
	open := c.NewService
	if open == nil {
		open = service.New
	}
	return open(ctx, cfg)
}

// ResolveAgentDir picks a coding agent's config directory: configDir when
// set, then ./dotDir for project installs, then ~/dotDir.
//
//revive:disable:flag-parameter
func ResolveAgentDir(dotDir, configDir string, project bool) string {
	if configDir != "" {
		return configDir
	}
	if project {
		cwd, _ := os.Getwd()
		return filepath.Join(cwd, dotDir)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, dotDir)
}

//revive:enable:flag-parameter
