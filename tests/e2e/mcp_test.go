// Package e2e_test contains MCP server end-to-end tests.
//
// Each test wires the real MCP server in-process via the mcp-go
// InProcessTransport, backed by a service.Service reading a temporary SQLite
// source and writing to an in-memory search daemon. The full stack
// (mcp-go client → mcp handler → service → rebuild engine → sphinxql) is
// exercised within a single test process.
package e2e_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	qt "github.com/frankban/quicktest"
	mcpclient "github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/go-ports/rtindex/internal/config"
	internalmcp "github.com/go-ports/rtindex/internal/mcp"
	"github.com/go-ports/rtindex/internal/service"
	"github.com/go-ports/rtindex/internal/source/sourcetest"
	"github.com/go-ports/rtindex/internal/sphinxql/sphinxqltest"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

const mcpConfig = `
source:
  driver: sqlite3
  dsn: unused
searchd:
  dsn: "tcp(127.0.0.1:9306)/"
rebuild:
  chunk_length: 2
  sleep_time: 0
jobs:
  - name: articles
    table: articles
    index: rt_articles
  - name: published
    table: articles
    index: rt_published
    condition: "published = 1"
`

// newMCPClient creates an in-process MCP client backed by a service over rows
// seeded articles. The client is started and initialized before it is
// returned; cleanup is registered on c automatically.
func newMCPClient(c *qt.C, rows int) (*mcpclient.Client, *sphinxqltest.Server) {
	c.TB.Helper()

	cfg, err := config.Parse([]byte(mcpConfig), "inline")
	c.Assert(err, qt.IsNil)

	srv := sphinxqltest.New("rt_articles")
	dst := srv.DB()
	c.TB.Cleanup(func() { _ = dst.Close() })

	svc := service.NewWithConns(cfg, sourcetest.Articles(c.TB, sourcetest.Path(c.TB), rows), dst)
	c.TB.Cleanup(func() { _ = svc.Close() })

	cl, err := mcpclient.NewInProcessClient(internalmcp.NewServer(svc))
	c.Assert(err, qt.IsNil)
	c.TB.Cleanup(func() { _ = cl.Close() })

	c.Assert(cl.Start(context.Background()), qt.IsNil)

	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{Name: "e2e-test", Version: "0.0.1"}
	_, err = cl.Initialize(context.Background(), initReq)
	c.Assert(err, qt.IsNil)

	return cl, srv
}

// callTool invokes the named MCP tool and returns the text of the first
// content item together with the tool's error flag.
func callTool(c *qt.C, cl *mcpclient.Client, name string, args map[string]any) (string, bool) {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	result, err := cl.CallTool(context.Background(), req)
	c.Assert(err, qt.IsNil)
	c.Assert(result.Content, qt.HasLen, 1)

	tc, ok := mcp.AsTextContent(result.Content[0])
	c.Assert(ok, qt.IsTrue)

	return tc.Text, result.IsError
}

// ---------------------------------------------------------------------------
// ListTools
// ---------------------------------------------------------------------------

func TestMCPListTools_HappyPath(t *testing.T) {
	c := qt.New(t)
	cl, _ := newMCPClient(c, 0)

	result, err := cl.ListTools(context.Background(), mcp.ListToolsRequest{})
	c.Assert(err, qt.IsNil)
	c.Assert(result.Tools, qt.HasLen, 3)

	names := make([]string, len(result.Tools))
	for i, tool := range result.Tools {
		names[i] = tool.Name
	}
	c.Assert(names, qt.Contains, "rebuild_list_jobs")
	c.Assert(names, qt.Contains, "rebuild_index")
	c.Assert(names, qt.Contains, "rebuild_check_index")
}

// ---------------------------------------------------------------------------
// rebuild_list_jobs
// ---------------------------------------------------------------------------

func TestMCPListJobs_HappyPath(t *testing.T) {
	c := qt.New(t)
	cl, _ := newMCPClient(c, 0)

	text, isErr := callTool(c, cl, "rebuild_list_jobs", nil)
	c.Assert(isErr, qt.IsFalse)

	var jobs []map[string]any
	c.Assert(json.Unmarshal([]byte(text), &jobs), qt.IsNil)
	c.Assert(jobs, qt.DeepEquals, []map[string]any{
		{"name": "articles", "table": "articles", "index": "rt_articles", "condition": "", "id_column": "id"},
		{"name": "published", "table": "articles", "index": "rt_published", "condition": "published = 1", "id_column": "id"},
	})
}

// ---------------------------------------------------------------------------
// rebuild_index
// ---------------------------------------------------------------------------

func TestMCPRebuildIndex_HappyPath(t *testing.T) {
	c := qt.New(t)

	cases := []struct {
		name       string
		args       map[string]any
		wantChunks float64
	}{
		{"config options", map[string]any{"job": "articles"}, 3},
		{"chunk length override", map[string]any{"job": "articles", "chunk_length": 10}, 1},
	}

	for _, tc := range cases {
		c.Run(tc.name, func(c *qt.C) {
			cl, srv := newMCPClient(c, 5)

			text, isErr := callTool(c, cl, "rebuild_index", tc.args)
			c.Assert(isErr, qt.IsFalse, qt.Commentf("%s", text))

			var res map[string]any
			c.Assert(json.Unmarshal([]byte(text), &res), qt.IsNil)
			c.Assert(res["job"], qt.Equals, "articles")
			c.Assert(res["index"], qt.Equals, "rt_articles")
			c.Assert(res["found"], qt.Equals, float64(5))
			c.Assert(res["rows"], qt.Equals, float64(5))
			c.Assert(res["chunks"], qt.Equals, tc.wantChunks)
			c.Assert(srv.Docs("rt_articles"), qt.HasLen, 5)
		})
	}
}

func TestMCPRebuildIndex_FailurePath(t *testing.T) {
	c := qt.New(t)

	c.Run("missing job", func(c *qt.C) {
		cl, _ := newMCPClient(c, 1)
		text, isErr := callTool(c, cl, "rebuild_index", map[string]any{})
		c.Assert(isErr, qt.IsTrue)
		c.Assert(text, qt.Equals, "job is required")
	})

	c.Run("unknown job", func(c *qt.C) {
		cl, _ := newMCPClient(c, 1)
		text, isErr := callTool(c, cl, "rebuild_index", map[string]any{"job": "nope"})
		c.Assert(isErr, qt.IsTrue)
		c.Assert(text, qt.Contains, `unknown job: "nope"`)
	})

	c.Run("absent index", func(c *qt.C) {
		cl, _ := newMCPClient(c, 1)
		text, isErr := callTool(c, cl, "rebuild_index", map[string]any{"job": "published"})
		c.Assert(isErr, qt.IsTrue)
		c.Assert(text, qt.Contains, "index [rt_published] not present")
		c.Assert(text, qt.Contains, "rows written before failure: 0")
	})

	c.Run("write failure", func(c *qt.C) {
		cl, srv := newMCPClient(c, 4)
		srv.FailReplaceAt(4, errors.New("connection reset"))
		text, isErr := callTool(c, cl, "rebuild_index", map[string]any{"job": "articles"})
		c.Assert(isErr, qt.IsTrue)
		c.Assert(text, qt.Contains, "connection reset")
		c.Assert(text, qt.Contains, "rows written before failure: 3")
	})
}

// ---------------------------------------------------------------------------
// rebuild_check_index
// ---------------------------------------------------------------------------

func TestMCPCheckIndex_HappyPath(t *testing.T) {
	c := qt.New(t)
	cl, _ := newMCPClient(c, 0)

	cases := []struct {
		index string
		want  bool
	}{
		{"rt_articles", true},
		{"rt_published", false},
	}

	for _, tc := range cases {
		c.Run(tc.index, func(c *qt.C) {
			text, isErr := callTool(c, cl, "rebuild_check_index", map[string]any{"index": tc.index})
			c.Assert(isErr, qt.IsFalse)

			var res map[string]any
			c.Assert(json.Unmarshal([]byte(text), &res), qt.IsNil)
			c.Assert(res, qt.DeepEquals, map[string]any{"index": tc.index, "exists": tc.want})
		})
	}
}
