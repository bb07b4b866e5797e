// Package sphinxqltest provides an in-memory stand-in for a search daemon's
// SphinxQL listener. It plugs into database/sql as a driver.Connector, records
// every statement it receives and answers the catalog queries the rebuild uses.
//
// Typical usage:
//
//	srv := sphinxqltest.New("rt_docs")
//	db := srv.DB()
//	defer db.Close()
//	// ... run code against db ...
//	c.Assert(srv.Docs("rt_docs"), qt.HasLen, 3)
package sphinxqltest

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"sync"
)

// Exec is a statement received by the server.
type Exec struct {
	Query string
	Args  []any
}

// FailFunc decides whether a statement fails. A nil return lets it through.
type FailFunc func(query string, args []any) error

// Server is an in-memory SphinxQL endpoint.
type Server struct {
	mu        sync.Mutex
	indexes   map[string][]Exec // index name → REPLACEs since the last truncate
	order     []string
	log       []Exec
	truncates []string
	fail      FailFunc
}

// New returns a server whose catalog lists the given indexes.
func New(indexes ...string) *Server {
	s := &Server{indexes: make(map[string][]Exec)}
	for _, name := range indexes {
		s.AddIndex(name)
	}
	return s
}

// AddIndex registers an empty index.
func (s *Server) AddIndex(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.indexes[name]; ok {
		return
	}
	s.indexes[name] = nil
	s.order = append(s.order, name)
}

// FailWith installs fn as the failure hook; pass nil to clear it.
func (s *Server) FailWith(fn FailFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = fn
}

// FailOn fails every statement whose text contains substr.
func (s *Server) FailOn(substr string, err error) {
	s.FailWith(func(q string, _ []any) error {
		if strings.Contains(q, substr) {
			return err
		}
		return nil
	})
}

// FailReplaceAt fails the n-th REPLACE statement (1-based) received from now on.
func (s *Server) FailReplaceAt(n int, err error) {
	seen := 0
	s.FailWith(func(q string, _ []any) error {
		if !strings.HasPrefix(q, "REPLACE ") {
			return nil
		}
		seen++
		if seen == n {
			return err
		}
		return nil
	})
}

// DB opens a *sql.DB backed by the server.
func (s *Server) DB() *sql.DB { return sql.OpenDB(s) }

// Log returns every statement received, in order.
func (s *Server) Log() []Exec {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Exec(nil), s.log...)
}

// Queries returns the text of every statement received, in order.
func (s *Server) Queries() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, e := range s.log {
		out = append(out, e.Query)
	}
	return out
}

// Truncates returns the indexes truncated, in order.
func (s *Server) Truncates() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.truncates...)
}

// Docs returns the REPLACE statements applied to index since its last truncate.
func (s *Server) Docs(index string) []Exec {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Exec(nil), s.indexes[index]...)
}

// ---------------------------------------------------------------------------
// Statement handling
// ---------------------------------------------------------------------------

var (
	showTablesRe = regexp.MustCompile(`(?i)^SHOW TABLES(?: LIKE '((?:[^'\\]|\\.)*)')?\s*$`)
	truncateRe   = regexp.MustCompile(`(?i)^TRUNCATE RTINDEX (\S+)(?: WITH RECONFIGURE)?\s*$`)
	replaceRe    = regexp.MustCompile(`(?i)^REPLACE INTO (\S+) \(`)
)

// ErrUnknownIndex mirrors the daemon's complaint about a missing index.
var ErrUnknownIndex = errors.New("unknown local index")

func (s *Server) exec(query string, args []any) (*rows, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.log = append(s.log, Exec{Query: query, Args: args})
	if s.fail != nil {
		if err := s.fail(query, args); err != nil {
			return nil, err
		}
	}

	switch {
	case showTablesRe.MatchString(query):
		m := showTablesRe.FindStringSubmatch(query)
		out := &rows{cols: []string{"Index", "Type"}}
		for _, name := range s.order {
			if m[1] == "" || like(unescape(m[1]), name) {
				out.data = append(out.data, []driver.Value{name, "rt"})
			}
		}
		return out, nil

	case truncateRe.MatchString(query):
		name := truncateRe.FindStringSubmatch(query)[1]
		if _, ok := s.indexes[name]; !ok {
			return nil, fmt.Errorf("%w '%s'", ErrUnknownIndex, name)
		}
		s.indexes[name] = nil
		s.truncates = append(s.truncates, name)
		return &rows{}, nil

	case replaceRe.MatchString(query):
		name := replaceRe.FindStringSubmatch(query)[1]
		if _, ok := s.indexes[name]; !ok {
			return nil, fmt.Errorf("%w '%s'", ErrUnknownIndex, name)
		}
		s.indexes[name] = append(s.indexes[name], Exec{Query: query, Args: args})
		return &rows{}, nil
	}
	return nil, fmt.Errorf("sphinxqltest: unsupported statement: %s", query)
}

// like matches name against a SQL LIKE pattern (% and _ wildcards).
func like(pattern, name string) bool {
	var b strings.Builder
	b.WriteString("^")
	for _, r := range pattern {
		switch r {
		case '%':
			b.WriteString(".*")
		case '_':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	return regexp.MustCompile(b.String()).MatchString(name)
}

func unescape(s string) string {
	s = strings.ReplaceAll(s, `\'`, `'`)
	return strings.ReplaceAll(s, `\\`, `\`)
}

// ---------------------------------------------------------------------------
// database/sql driver plumbing
// ---------------------------------------------------------------------------

var (
	_ driver.Connector      = (*Server)(nil)
	_ driver.ExecerContext  = (*conn)(nil)
	_ driver.QueryerContext = (*conn)(nil)
)

// Connect implements driver.Connector.
func (s *Server) Connect(context.Context) (driver.Conn, error) { return &conn{srv: s}, nil }

// Driver implements driver.Connector.
func (s *Server) Driver() driver.Driver { return drv{srv: s} }

type drv struct{ srv *Server }

func (d drv) Open(string) (driver.Conn, error) { return &conn{srv: d.srv}, nil }

type conn struct{ srv *Server }

func (c *conn) Prepare(query string) (driver.Stmt, error) { return &stmt{c: c, query: query}, nil }
func (*conn) Close() error                                { return nil }
func (*conn) Begin() (driver.Tx, error) {
	return nil, errors.New("sphinxqltest: transactions are not supported")
}

func (c *conn) ExecContext(_ context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	if _, err := c.srv.exec(query, values(args)); err != nil {
		return nil, err
	}
	return driver.RowsAffected(1), nil
}

func (c *conn) QueryContext(_ context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	return c.srv.exec(query, values(args))
}

type stmt struct {
	c     *conn
	query string
}

func (*stmt) Close() error  { return nil }
func (*stmt) NumInput() int { return -1 }

func (s *stmt) Exec(args []driver.Value) (driver.Result, error) {
	if _, err := s.c.srv.exec(s.query, anys(args)); err != nil {
		return nil, err
	}
	return driver.RowsAffected(1), nil
}

func (s *stmt) Query(args []driver.Value) (driver.Rows, error) {
	return s.c.srv.exec(s.query, anys(args))
}

type rows struct {
	cols []string
	data [][]driver.Value
	pos  int
}

func (r *rows) Columns() []string { return r.cols }
func (*rows) Close() error        { return nil }

func (r *rows) Next(dest []driver.Value) error {
	if r.pos >= len(r.data) {
		return io.EOF
	}
	copy(dest, r.data[r.pos])
	r.pos++
	return nil
}

func values(named []driver.NamedValue) []any {
	out := make([]any, len(named))
	for i, nv := range named {
		out[i] = nv.Value
	}
	return out
}

func anys(vals []driver.Value) []any {
	out := make([]any, len(vals))
	for i, v := range vals {
		out[i] = v
	}
	return out
}
