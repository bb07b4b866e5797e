// Package e2e_test contains end-to-end tests that exercise the full rtindex CLI
// by importing the root command and running it in-process against a temporary
// SQLite source and an in-memory search daemon.
// Output is captured via cobra's SetOut so tests can run concurrently without
// affecting os.Stdout.
package e2e_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	qt "github.com/frankban/quicktest"

	rootcmd "github.com/go-ports/rtindex/cmd/rtindex/root"
	"github.com/go-ports/rtindex/cmd/rtindex/shared"
	"github.com/go-ports/rtindex/internal/config"
	"github.com/go-ports/rtindex/internal/service"
	"github.com/go-ports/rtindex/internal/source/sourcetest"
	"github.com/go-ports/rtindex/internal/sphinxql/sphinxqltest"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

const configTemplate = `
source:
  driver: sqlite3
  dsn: %SOURCE%
searchd:
  dsn: "rt:secret@tcp(127.0.0.1:9306)/"
rebuild:
  chunk_length: 2
  sleep_time: 0
jobs:
  - name: articles
    table: articles
    index: rt_articles
    columns:
      - name: id
      - name: title
      - name: tag_ids
        from: tags_json
        jsonpath: "$[*].id"
        mva: true
  - name: published
    table: articles
    index: rt_published
    condition: "published = 1"
`

// env is a temporary rtindex deployment: a config file, a seeded SQLite
// source and an in-memory searchd the CLI is wired to.
type env struct {
	configPath string
	srv        *sphinxqltest.Server
}

func newEnv(c *qt.C, rows int) *env {
	c.TB.Helper()

	dir := c.TB.TempDir()
	dbPath := filepath.Join(dir, "source.db")
	sourcetest.Articles(c.TB, dbPath, rows)

	cfgPath := filepath.Join(dir, "rtindex.yaml")
	body := strings.ReplaceAll(configTemplate, "%SOURCE%", dbPath)
	c.Assert(os.WriteFile(cfgPath, []byte(body), 0o600), qt.IsNil)

	return &env{
		configPath: cfgPath,
		srv:        sphinxqltest.New("rt_articles", "rt_published"),
	}
}

// newService opens the configured source for real and points searchd at the
// in-memory server.
func (e *env) newService(c *qt.C) func(context.Context, *config.File) (*service.Service, error) {
	return func(_ context.Context, cfg *config.File) (*service.Service, error) {
		src := sourcetest.Open(c.TB, cfg.Source.DSN)
		dst := e.srv.DB()
		c.TB.Cleanup(func() { _ = dst.Close() })
		return service.NewWithConns(cfg, src, dst), nil
	}
}

// runCmd executes the root command with the provided args and returns the
// captured stdout output along with any execution error.
func runCmd(c *qt.C, e *env, args ...string) (string, error) {
	c.TB.Helper()

	sc := &shared.Context{}
	if e != nil {
		sc.NewService = e.newService(c)
		args = append([]string{"--config", e.configPath}, args...)
	}

	var buf bytes.Buffer
	root := rootcmd.NewWithContext(sc)
	root.SetOut(&buf)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(args)
	execErr := root.ExecuteContext(context.Background())

	return buf.String(), execErr
}

// ---------------------------------------------------------------------------
// Help / version
// ---------------------------------------------------------------------------

func TestHelp_HappyPath(t *testing.T) {
	c := qt.New(t)

	out, err := runCmd(c, nil, "--help")
	c.Assert(err, qt.IsNil)
	c.Assert(out, qt.Contains, "rtindex")
	for _, sub := range []string{"rebuild", "jobs", "check", "config", "mcp", "version"} {
		c.Assert(out, qt.Contains, sub)
	}
}

func TestVersion_HappyPath(t *testing.T) {
	c := qt.New(t)

	out, err := runCmd(c, nil, "version")
	c.Assert(err, qt.IsNil)
	c.Assert(out, qt.Matches, `rtindex \S+ \(commit \S+, branch \S+, built \S+\)\n`)
}

func TestLogFlags_FailurePath(t *testing.T) {
	c := qt.New(t)

	_, err := runCmd(c, nil, "--log-level", "loud", "version")
	c.Assert(err, qt.ErrorMatches, `invalid --log-level "loud".*`)

	_, err = runCmd(c, nil, "--log-format", "xml", "version")
	c.Assert(err, qt.ErrorMatches, `invalid --log-format "xml".*`)
}

// ---------------------------------------------------------------------------
// Config
// ---------------------------------------------------------------------------

func TestConfigShow_HappyPath(t *testing.T) {
	c := qt.New(t)

	e := newEnv(c, 0)
	out, err := runCmd(c, e, "config")
	c.Assert(err, qt.IsNil)
	c.Assert(out, qt.Contains, "driver: sqlite3")
	c.Assert(out, qt.Contains, "rt:[REDACTED]@tcp(127.0.0.1:9306)/")
	c.Assert(out, qt.Not(qt.Contains), "secret")
	c.Assert(out, qt.Contains, "messenger: writer")
	c.Assert(out, qt.Contains, "name: articles")
	c.Assert(out, qt.Contains, "config_source: flag")
}

func TestConfigInit_HappyPath(t *testing.T) {
	c := qt.New(t)

	path := filepath.Join(t.TempDir(), "nested", "rtindex.yaml")

	out, err := runCmd(c, nil, "--config", path, "config", "init")
	c.Assert(err, qt.IsNil)
	c.Assert(out, qt.Contains, "Created "+path)

	data, err := os.ReadFile(path)
	c.Assert(err, qt.IsNil)
	c.Assert(string(data), qt.Equals, config.Template)

	out, err = runCmd(c, nil, "--config", path, "config", "init")
	c.Assert(err, qt.IsNil)
	c.Assert(out, qt.Contains, "Config already exists at "+path)
	c.Assert(out, qt.Contains, "Use --force to overwrite.")

	c.Assert(os.WriteFile(path, []byte("jobs: []\n"), 0o600), qt.IsNil)
	out, err = runCmd(c, nil, "--config", path, "config", "init", "--force")
	c.Assert(err, qt.IsNil)
	c.Assert(out, qt.Contains, "Created "+path)
	data, err = os.ReadFile(path)
	c.Assert(err, qt.IsNil)
	c.Assert(string(data), qt.Equals, config.Template)
}

// ---------------------------------------------------------------------------
// Jobs
// ---------------------------------------------------------------------------

func TestJobs_HappyPath(t *testing.T) {
	c := qt.New(t)

	e := newEnv(c, 5)

	c.Run("listing", func(c *qt.C) {
		out, err := runCmd(c, e, "jobs")
		c.Assert(err, qt.IsNil)
		c.Assert(out, qt.Matches, `(?s)JOB\s+TABLE\s+INDEX\s+CONDITION\n.*articles\s+articles\s+rt_articles.*published = 1\n`)
	})

	c.Run("with row counts", func(c *qt.C) {
		out, err := runCmd(c, e, "jobs", "--count")
		c.Assert(err, qt.IsNil)
		c.Assert(out, qt.Contains, "ROWS")
		c.Assert(out, qt.Matches, `(?s).*rt_articles\s+5\n.*published = 1\s+3\n`)
	})
}

func TestJobs_FailurePath(t *testing.T) {
	c := qt.New(t)

	_, err := runCmd(c, nil, "--config", filepath.Join(t.TempDir(), "missing.yaml"), "jobs")
	c.Assert(err, qt.ErrorMatches, `config.Load: .*`)
}

// ---------------------------------------------------------------------------
// Check
// ---------------------------------------------------------------------------

func TestCheck_HappyPath(t *testing.T) {
	c := qt.New(t)

	e := newEnv(c, 0)
	out, err := runCmd(c, e, "check", "rt_articles")
	c.Assert(err, qt.IsNil)
	c.Assert(out, qt.Equals, "Index rt_articles exists.\n")
}

func TestCheck_FailurePath(t *testing.T) {
	c := qt.New(t)

	e := newEnv(c, 0)
	_, err := runCmd(c, e, "check", "rt_nope")
	c.Assert(err, qt.ErrorMatches, `index \[rt_nope\] not present`)

	_, err = runCmd(c, e, "check")
	c.Assert(err, qt.IsNotNil)
}

// ---------------------------------------------------------------------------
// Rebuild
// ---------------------------------------------------------------------------

func TestRebuild_HappyPath(t *testing.T) {
	c := qt.New(t)

	e := newEnv(c, 3)
	out, err := runCmd(c, e, "rebuild", "articles")
	c.Assert(err, qt.IsNil)
	c.Assert(out, qt.Contains, "[rt_articles] index: 3 elements found for rebuild.\n"+
		"Rebuilding elements from 0, 2 count... articles: 3\n"+
		"articles: 2\n"+
		"Updated RT-index rt_articles.\n"+
		"Rebuilding elements from 2, 2 count... articles: 1\n"+
		"Updated RT-index rt_articles.\n"+
		"Total updated 3 elements for rt_articles RT-index.\n")
	c.Assert(out, qt.Matches, `(?s).*articles: 3/3 rows written into rt_articles in 2 chunk\(s\) \(\S+\)\n`)

	docs := e.srv.Docs("rt_articles")
	c.Assert(docs, qt.HasLen, 3)
	c.Assert(docs[2].Query, qt.Equals, "REPLACE INTO rt_articles (id, title, tag_ids) VALUES (?, ?, (1,101))")
}

func TestRebuild_Flags(t *testing.T) {
	c := qt.New(t)

	c.Run("all jobs with chunk length override", func(c *qt.C) {
		e := newEnv(c, 4)
		out, err := runCmd(c, e, "rebuild", "--all", "--chunk-length", "3", "--quiet-progress")
		c.Assert(err, qt.IsNil)
		c.Assert(out, qt.Not(qt.Contains), "Rebuilding elements")
		c.Assert(out, qt.Contains, "articles: 4/4 rows written into rt_articles in 2 chunk(s)")
		c.Assert(out, qt.Contains, "published: 2/2 rows written into rt_published in 1 chunk(s)")
	})

	c.Run("condition replaces the job filter", func(c *qt.C) {
		e := newEnv(c, 4)
		out, err := runCmd(c, e, "rebuild", "published", "--condition", "id > 2", "--quiet-progress")
		c.Assert(err, qt.IsNil)
		c.Assert(out, qt.Contains, "published: 2/2 rows written into rt_published")
		c.Assert(e.srv.Docs("rt_published")[0].Args[0], qt.Equals, int64(4))
	})
}

func TestRebuild_FailurePath(t *testing.T) {
	c := qt.New(t)

	e := newEnv(c, 2)

	cases := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"no job", []string{"rebuild"}, `specify one or more job names, or --all`},
		{"all with names", []string{"rebuild", "--all", "articles"}, `--all cannot be combined with job names`},
		{"unknown job", []string{"rebuild", "nope"}, `unknown job "nope"`},
	}

	for _, tc := range cases {
		c.Run(tc.name, func(c *qt.C) {
			_, err := runCmd(c, e, tc.args...)
			c.Assert(err, qt.ErrorMatches, tc.wantErr)
		})
	}

	c.Run("searchd failure reports partial progress", func(c *qt.C) {
		e := newEnv(c, 4)
		e.srv.FailReplaceAt(3, errors.New("connection reset"))
		out, err := runCmd(c, e, "rebuild", "articles", "--quiet-progress")
		c.Assert(err, qt.ErrorMatches, `(?s)Rebuild articles: rebuild: upstream query failed: .*connection reset.*`)
		c.Assert(out, qt.Contains, "articles: 2/4 rows written into rt_articles in 1 chunk(s)")
	})
}

// ---------------------------------------------------------------------------
// Setup / uninstall
// ---------------------------------------------------------------------------

func TestSetupCursor_HappyPath(t *testing.T) {
	c := qt.New(t)

	cursorDir := t.TempDir()
	cfgPath := filepath.Join(t.TempDir(), "rtindex.yaml")

	out, err := runCmd(c, nil, "--config", cfgPath, "setup", "cursor", "--config-dir", cursorDir)
	c.Assert(err, qt.IsNil)
	c.Assert(out, qt.Equals, "Installed: mcpServers\n")

	data, err := os.ReadFile(filepath.Join(cursorDir, "mcp.json"))
	c.Assert(err, qt.IsNil)
	c.Assert(string(data), qt.Contains, `"rtindex"`)
	c.Assert(string(data), qt.Contains, cfgPath)

	out, err = runCmd(c, nil, "uninstall", "cursor", "--config-dir", cursorDir)
	c.Assert(err, qt.IsNil)
	c.Assert(out, qt.Equals, "Removed: mcpServers\n")
}
