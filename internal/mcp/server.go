// Package mcp provides the stdio MCP server exposing rebuild tools for agents.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/go-ports/rtindex/internal/buildinfo"
	"github.com/go-ports/rtindex/internal/config"
	"github.com/go-ports/rtindex/internal/messenger"
	"github.com/go-ports/rtindex/internal/models"
	"github.com/go-ports/rtindex/internal/service"
)

const listJobsDescription = `List the configured rebuild jobs: job name, source table, target RT index, row filter and identifier column.`

const rebuildDescription = `Rebuild one real-time index from its source table. The index is truncated first and then refilled in chunks, newest rows first. Searches against the index return partial results until the rebuild finishes. Returns the number of rows found and written.` //nolint:lll

const checkDescription = `Check whether an index exists on the search daemon.`

// NewServer creates and registers all rebuild tools on a new MCP server.
// It is separate from Serve so that tests can obtain a fully configured
// server without committing to the stdio transport.
func NewServer(svc *service.Service) *mcpserver.MCPServer {
	s := mcpserver.NewMCPServer("rtindex", buildinfo.Version)
	registerTools(s, svc)
	return s
}

// Serve starts the stdio MCP server, blocking until stdin closes.
func Serve(ctx context.Context, cfg *config.File) error {
	svc, err := service.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("mcp: init service: %w", err)
	}
	defer svc.Close()

	return mcpserver.ServeStdio(NewServer(svc))
}

// registerTools wires all three MCP tools into the server.
func registerTools(s *mcpserver.MCPServer, svc *service.Service) {
	s.AddTool(mcp.NewTool("rebuild_list_jobs",
		mcp.WithDescription(listJobsDescription),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleListJobs(ctx, svc, req)
	})

	s.AddTool(mcp.NewTool("rebuild_index",
		mcp.WithDescription(rebuildDescription),
		mcp.WithString("job",
			mcp.Description("Job name from rebuild_list_jobs."),
			mcp.Required(),
		),
		mcp.WithNumber("chunk_length",
			mcp.Description("Rows per chunk (default from config)."),
		),
		mcp.WithNumber("sleep_time",
			mcp.Description("Seconds to pause between chunks; 0 disables the pause."),
		),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleRebuild(ctx, svc, req)
	})

	s.AddTool(mcp.NewTool("rebuild_check_index",
		mcp.WithDescription(checkDescription),
		mcp.WithString("index",
			mcp.Description("Index name, matched exactly."),
			mcp.Required(),
		),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleCheckIndex(ctx, svc, req)
	})
}

// ---------------------------------------------------------------------------
// Tool handlers
// ---------------------------------------------------------------------------

func handleListJobs(_ context.Context, svc *service.Service, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	jobs := svc.Jobs()
	out := make([]map[string]any, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, map[string]any{
			"name":      j.Name,
			"table":     j.Table,
			"index":     j.Index,
			"condition": j.Condition,
			"id_column": j.IDColumn,
		})
	}
	return jsonResult(out)
}

func handleRebuild(ctx context.Context, svc *service.Service, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	job := req.GetString("job", "")
	if job == "" {
		return mcp.NewToolResultError("job is required"), nil
	}

	// stdout carries the protocol; progress goes to the structured log.
	res, err := svc.Rebuild(ctx, job, overrides(req.GetArguments()), messenger.NewLogger(nil))
	if err != nil {
		if res != nil {
			return mcp.NewToolResultError(fmt.Sprintf("%v (rows written before failure: %d)", err, res.Rows)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(resultMap(res))
}

func handleCheckIndex(ctx context.Context, svc *service.Service, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	index := req.GetString("index", "")
	ok, err := svc.IndexExists(ctx, index)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]any{
		"index":  index,
		"exists": ok,
	})
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// overrides picks the rebuild options out of the tool arguments.
func overrides(args map[string]any) map[string]any {
	out := make(map[string]any)
	for _, key := range []string{config.KeyChunkLength, config.KeySleepTime} {
		if v, ok := args[key]; ok && v != nil {
			out[key] = v
		}
	}
	return out
}

func resultMap(r *models.RebuildResult) map[string]any {
	return map[string]any{
		"job":              r.Job,
		"table":            r.Table,
		"index":            r.Index,
		"found":            r.Found,
		"rows":             r.Rows,
		"chunks":           r.Chunks,
		"duration_seconds": roundTwo(r.Duration.Seconds()),
	}
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(b)), nil
}

// roundTwo rounds f to 2 decimal places.
func roundTwo(f float64) float64 {
	return math.Round(f*100) / 100
}
