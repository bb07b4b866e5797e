// Package service implements the Service orchestrator that wires together
// configuration, the source database, the search daemon, transforms and the
// rebuild engine.
package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-ports/rtindex/internal/config"
	"github.com/go-ports/rtindex/internal/messenger"
	"github.com/go-ports/rtindex/internal/models"
	"github.com/go-ports/rtindex/internal/rebuild"
	"github.com/go-ports/rtindex/internal/redaction"
	"github.com/go-ports/rtindex/internal/source"
	"github.com/go-ports/rtindex/internal/sphinxql"
	"github.com/go-ports/rtindex/internal/transform"
)

// ErrUnknownJob is returned when a job name is not declared in the config.
var ErrUnknownJob = errors.New("unknown job")

// Service orchestrates rebuild operations.
type Service struct {
	Config *config.File

	source  source.Querier
	searchd sphinxql.Conn
	dialect source.Dialect
	owned   []*sql.DB
	sleeper rebuild.Sleeper

	// Rebuilds share one searchd connection and run one at a time.
	mu sync.Mutex
}

// New validates cfg and opens the source database and the searchd connection.
func New(ctx context.Context, cfg *config.File) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("service.New: %w", err)
	}

	src, err := source.Open(ctx, cfg.Source.Driver, cfg.Source.DSN)
	if err != nil {
		return nil, fmt.Errorf("service.New: open source: %w", err)
	}

	searchd, err := sphinxql.Open(ctx, cfg.Searchd.DSN)
	if err != nil {
		_ = src.Close()
		return nil, fmt.Errorf("service.New: open searchd %s: %w", redaction.DSN("searchd", cfg.Searchd.DSN), err)
	}

	s := NewWithConns(cfg, src, searchd)
	s.owned = []*sql.DB{src, searchd}
	return s, nil
}

// NewWithConns builds a Service around existing connections. The caller keeps
// ownership of them; Close does not close them.
func NewWithConns(cfg *config.File, src source.Querier, searchd sphinxql.Conn) *Service {
	return &Service{
		Config:  cfg,
		source:  src,
		searchd: searchd,
		dialect: source.DialectFor(cfg.Source.Driver),
	}
}

// SetSleeper replaces the pause between chunks for every subsequent rebuild.
func (s *Service) SetSleeper(sl rebuild.Sleeper) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sleeper = sl
}

// Close releases the connections opened by New.
func (s *Service) Close() error {
	var errs []error
	for _, db := range s.owned {
		if err := db.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	s.owned = nil
	return errors.Join(errs...)
}

// ---------------------------------------------------------------------------
// Jobs
// ---------------------------------------------------------------------------

// Jobs returns the configured jobs in file order.
func (s *Service) Jobs() []models.Job {
	out := make([]models.Job, 0, len(s.Config.Jobs))
	for _, j := range s.Config.Jobs {
		out = append(out, j.Model())
	}
	return out
}

func (s *Service) job(name string) (config.JobConfig, error) {
	j, ok := s.Config.Job(name)
	if !ok {
		return config.JobConfig{}, fmt.Errorf("%w: %q", ErrUnknownJob, name)
	}
	return j, nil
}

// IndexExists reports whether the search daemon knows index.
func (s *Service) IndexExists(ctx context.Context, index string) (bool, error) {
	ok, err := sphinxql.IndexExists(ctx, s.searchd, index)
	if err != nil {
		return false, fmt.Errorf("IndexExists: %w", err)
	}
	return ok, nil
}

// CountSource returns the number of source rows the named job would rebuild.
func (s *Service) CountSource(ctx context.Context, jobName string) (int, error) {
	j, err := s.job(jobName)
	if err != nil {
		return 0, fmt.Errorf("CountSource: %w", err)
	}
	n, err := source.Count(ctx, s.source, s.dialect, j.Table, j.Condition)
	if err != nil {
		return 0, fmt.Errorf("CountSource: %w", err)
	}
	return n, nil
}

// ---------------------------------------------------------------------------
// Rebuild
// ---------------------------------------------------------------------------

// Rebuild runs the named job. overrides win over the job and global options.
// A nil msg selects the sink named by the config's messenger setting.
// On failure the partial result is returned alongside the error.
func (s *Service) Rebuild(ctx context.Context, jobName string, overrides map[string]any, msg messenger.Messenger) (*models.RebuildResult, error) {
	j, err := s.job(jobName)
	if err != nil {
		return nil, fmt.Errorf("Rebuild: %w", err)
	}

	fn, err := transform.FromColumns(j.Columns)
	if err != nil {
		return nil, fmt.Errorf("Rebuild %s: %w", j.Name, err)
	}
	mva := j.MVA
	if len(j.Columns) > 0 {
		mva = transform.MVAColumns(j.Columns)
	}

	if msg == nil {
		msg = s.defaultMessenger()
	}
	if l, ok := msg.(*messenger.Logger); ok {
		defer l.Flush()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	opts := []rebuild.Option{
		rebuild.WithMessenger(msg),
		rebuild.WithDialect(s.dialect),
		rebuild.WithIDColumn(j.ID()),
	}
	if s.sleeper != nil {
		opts = append(opts, rebuild.WithSleeper(s.sleeper))
	}
	engine := rebuild.New(s.source, s.searchd, s.Config.JobOptions(j, overrides), opts...)

	start := time.Now()
	st, err := engine.Rebuild(ctx, rebuild.Request{
		SourceTable: j.Table,
		TargetIndex: j.Index,
		Transform:   fn,
		Condition:   j.Condition,
		MVA:         len(mva) > 0,
		MVAColumns:  mva,
	})
	res := &models.RebuildResult{
		Job:      j.Name,
		Table:    j.Table,
		Index:    j.Index,
		Found:    st.Found,
		Rows:     st.Written,
		Chunks:   st.Chunks,
		Duration: time.Since(start),
	}
	if err != nil {
		slog.Error("rebuild failed", "job", j.Name, "index", j.Index, "rows", res.Rows, "err", err)
		return res, fmt.Errorf("Rebuild %s: %w", j.Name, err)
	}
	slog.Info("rebuild complete", "job", j.Name, "index", j.Index, "rows", res.Rows, "duration", res.Duration)
	return res, nil
}

// RebuildAll runs every configured job in file order and stops at the first
// failure. The results cover the jobs attempted, including the failed one.
func (s *Service) RebuildAll(ctx context.Context, overrides map[string]any, msg messenger.Messenger) ([]models.RebuildResult, error) {
	results := make([]models.RebuildResult, 0, len(s.Config.Jobs))
	for _, j := range s.Config.Jobs {
		res, err := s.Rebuild(ctx, j.Name, overrides, msg)
		if res != nil {
			results = append(results, *res)
		}
		if err != nil {
			return results, err
		}
	}
	return results, nil
}

func (s *Service) defaultMessenger() messenger.Messenger {
	if s.Config.Messenger == "log" {
		return messenger.NewLogger(nil)
	}
	return messenger.NewWriter(nil)
}
