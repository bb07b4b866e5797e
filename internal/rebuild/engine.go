// Package rebuild implements the chunked rebuild of a real-time index from a
// relational table: truncate the index, count the source rows, then page
// through them newest-first, transforming each row and writing it with REPLACE.
//
// A rebuild is strictly sequential. It aborts on the first error and leaves
// the index truncated with only the rows written so far; the returned count
// tells the caller how far it got.
package rebuild

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-ports/rtindex/internal/config"
	"github.com/go-ports/rtindex/internal/messenger"
	"github.com/go-ports/rtindex/internal/models"
	"github.com/go-ports/rtindex/internal/source"
	"github.com/go-ports/rtindex/internal/sphinxql"
)

// Transform turns a source row into the column set written to the index.
type Transform func(row *models.Row) (*models.Row, error)

// Request describes one rebuild.
type Request struct {
	SourceTable string
	TargetIndex string
	Transform   Transform
	// Condition filters the source rows; raw SQL without WHERE.
	Condition string
	// MVA enables inlining of MVAColumns as multi-valued attribute literals.
	MVA        bool
	MVAColumns []string
}

// Stats summarises a rebuild.
type Stats struct {
	Found   int // rows matching the condition at count time
	Written int // rows written into the index
	Chunks  int // chunks completed
}

// Sleeper pauses between chunks. It returns early with ctx.Err() when ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Option configures an Engine.
type Option func(*Engine)

// WithMessenger sets the progress sink.
func WithMessenger(m messenger.Messenger) Option {
	return func(e *Engine) { e.SetMessenger(m) }
}

// WithDialect sets the SQL dialect of the source database.
func WithDialect(d source.Dialect) Option {
	return func(e *Engine) { e.dialect = d }
}

// WithIDColumn sets the source column used for ordering and progress output.
func WithIDColumn(col string) Option {
	return func(e *Engine) {
		if col != "" {
			e.idColumn = col
		}
	}
}

// WithSleeper replaces the inter-chunk pause.
func WithSleeper(s Sleeper) Option {
	return func(e *Engine) { e.sleep = s }
}

// Engine rebuilds real-time indexes from one source into one search daemon.
type Engine struct {
	src       source.Querier
	dst       sphinxql.Conn
	cfg       config.RebuildConfig
	messenger messenger.Messenger
	dialect   source.Dialect
	idColumn  string
	sleep     Sleeper
}

// New returns an Engine reading from src and writing to dst.
// Progress goes to stdout unless WithMessenger says otherwise.
func New(src source.Querier, dst sphinxql.Conn, cfg config.RebuildConfig, opts ...Option) *Engine {
	e := &Engine{
		src:       src,
		dst:       dst,
		cfg:       cfg,
		messenger: messenger.NewWriter(nil),
		dialect:   source.DialectLimit,
		idColumn:  config.DefaultIDColumn,
		sleep:     sleepContext,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SetMessenger replaces the progress sink. nil restores the stdout writer.
func (e *Engine) SetMessenger(m messenger.Messenger) {
	if m == nil {
		m = messenger.NewWriter(nil)
	}
	e.messenger = m
}

// SetOptions resolves overrides against the defaults, stores the result and
// returns it.
func (e *Engine) SetOptions(overrides map[string]any) config.RebuildConfig {
	e.cfg = config.Resolve(overrides)
	return e.cfg
}

// Config returns the option set the next rebuild will use.
func (e *Engine) Config() config.RebuildConfig { return e.cfg }

// RebuildIndex rebuilds req.TargetIndex and returns the number of rows
// written. On failure the count covers the rows written before the error.
func (e *Engine) RebuildIndex(ctx context.Context, req Request) (int, error) {
	st, err := e.Rebuild(ctx, req)
	return st.Written, err
}

// Rebuild is RebuildIndex returning the full Stats.
func (e *Engine) Rebuild(ctx context.Context, req Request) (Stats, error) {
	cfg := e.cfg
	var st Stats

	if err := e.validate(ctx, cfg, req); err != nil {
		return st, err
	}

	index := req.TargetIndex
	if err := sphinxql.Truncate(ctx, e.dst, index, cfg.TruncateReconfigure); err != nil {
		return st, fmt.Errorf("%w: %w", ErrUpstreamQuery, err)
	}

	total, err := source.Count(ctx, e.src, e.dialect, req.SourceTable, req.Condition)
	if err != nil {
		return st, fmt.Errorf("%w: %w", ErrUpstreamQuery, err)
	}
	st.Found = total
	slog.Debug("rebuild: start", "index", index, "table", req.SourceTable, "rows", total, "chunk_length", cfg.ChunkLength)

	if cfg.LogBeforeIndex {
		e.say(fmt.Sprintf("[%s] index: ", index), false)
	}
	if cfg.LogTotalRowsFound {
		e.say(fmt.Sprintf("%d elements found for rebuild.", total), true)
	}

	chunks := (total + cfg.ChunkLength - 1) / cfg.ChunkLength
	for i := range chunks {
		if err := ctx.Err(); err != nil {
			return st, fmt.Errorf("rebuild %s: cancelled after %d/%d rows: %w", index, st.Written, total, err)
		}
		offset := i * cfg.ChunkLength
		limit := min(cfg.ChunkLength, total-offset)

		if cfg.LogBeforeChunk {
			e.say(fmt.Sprintf("Rebuilding elements from %d, %d count... ", offset, cfg.ChunkLength), false)
		}

		n, err := e.rebuildChunk(ctx, cfg, req, offset, limit)
		st.Written += n
		if err != nil {
			return st, err
		}
		st.Chunks++

		// The pause only separates chunks; the line stays open for its banner.
		sleeping := cfg.SleepAfterChunk && i < chunks-1
		if cfg.LogAfterChunk {
			e.say(fmt.Sprintf("Updated RT-index %s.", index), !sleeping)
		} else {
			e.say("Ok", !sleeping)
		}
		if sleeping {
			e.say(fmt.Sprintf("Sleeping for %d second(s)... ", cfg.SleepTime), false)
			if err := e.sleep(ctx, cfg.SleepDuration()); err != nil {
				e.say("", true)
				return st, fmt.Errorf("rebuild %s: cancelled after %d/%d rows: %w", index, st.Written, total, err)
			}
			e.say("Woke up.", true)
		}
	}

	if cfg.LogAfterIndex {
		e.say(fmt.Sprintf("Total updated %d elements for %s RT-index.", st.Written, index), true)
	}
	slog.Debug("rebuild: done", "index", index, "written", st.Written, "chunks", st.Chunks)
	return st, nil
}

// validate runs every check that must pass before the index is touched.
func (e *Engine) validate(ctx context.Context, cfg config.RebuildConfig, req Request) error {
	if req.TargetIndex == "" {
		return fmt.Errorf("%w: requested update of undefined index", ErrConfiguration)
	}
	if req.SourceTable == "" {
		return fmt.Errorf("%w: source table for index %s is not defined", ErrConfiguration, req.TargetIndex)
	}
	if req.Transform == nil {
		return fmt.Errorf("%w: no transform for index %s", ErrConfiguration, req.TargetIndex)
	}

	exists, err := sphinxql.IndexExists(ctx, e.dst, req.TargetIndex)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUpstreamQuery, err)
	}
	if !exists {
		return fmt.Errorf("%w: index [%s] not present", ErrPrecondition, req.TargetIndex)
	}

	if cfg.ChunkLength <= 0 {
		return fmt.Errorf("%w: chunk length is %d for index %s", ErrConfiguration, cfg.ChunkLength, req.TargetIndex)
	}
	return nil
}

// rebuildChunk writes rows [offset, offset+limit) and returns how many were written.
func (e *Engine) rebuildChunk(ctx context.Context, cfg config.RebuildConfig, req Request, offset, limit int) (int, error) {
	cur, err := source.Fetch(ctx, e.src, e.dialect, req.SourceTable, req.Condition, e.idColumn, offset, limit)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrUpstreamQuery, err)
	}
	defer cur.Close()

	written := 0
	for cur.Next() {
		row := cur.Row()
		id, _ := row.Get(e.idColumn)
		if cfg.LogRowsInsideChunk {
			e.say(fmt.Sprintf("%s: %v", req.SourceTable, id), true)
		}

		set, err := req.Transform(row)
		if err != nil {
			return written, fmt.Errorf("%w: %s row %s=%v: %w", ErrTransform, req.SourceTable, e.idColumn, id, err)
		}
		if set == nil || set.Len() == 0 {
			return written, fmt.Errorf("%w: %s row %s=%v: transform produced no columns", ErrTransform, req.SourceTable, e.idColumn, id)
		}

		var stmt sphinxql.Statement
		if req.MVA {
			stmt = sphinxql.BuildReplaceMVA(req.TargetIndex, set, req.MVAColumns)
		} else {
			stmt = sphinxql.BuildReplace(req.TargetIndex, set)
		}
		if err := sphinxql.Replace(ctx, e.dst, stmt); err != nil {
			return written, fmt.Errorf("%w: index %s: %w", ErrUpstreamQuery, req.TargetIndex, err)
		}
		written++
	}
	if err := cur.Err(); err != nil {
		return written, fmt.Errorf("%w: %s: %w\nSQL: %s", ErrUpstreamQuery, req.SourceTable, err, cur.Query)
	}
	return written, nil
}

func (e *Engine) say(message string, lineBreak bool) {
	e.messenger.Say(message, lineBreak)
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
