// Package config handles rebuild configuration: the flat option set of a
// single rebuild and the YAML file describing connections and jobs.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/go-ports/rtindex/internal/models"
)

// EnvConfigPath names the environment variable consulted by ResolveConfigPath.
const EnvConfigPath = "RTINDEX_CONFIG"

// DefaultFileName is the config file looked up in the working directory.
const DefaultFileName = "rtindex.yaml"

// DefaultIDColumn is the source column used for ordering and progress output.
const DefaultIDColumn = "id"

// ErrNoJobs is returned by Validate when the file declares no jobs.
var ErrNoJobs = errors.New("no jobs configured")

// ---------------------------------------------------------------------------
// Config types
// ---------------------------------------------------------------------------

// SourceConfig selects the relational database rows are read from.
type SourceConfig struct {
	Driver string `yaml:"driver"` // "mysql" | "postgres" | "sqlite" | "sqlite3" | "sqlserver"
	DSN    string `yaml:"dsn"`
}

// SearchdConfig points at the SphinxQL listener of the search daemon.
type SearchdConfig struct {
	DSN string `yaml:"dsn"` // go-sql-driver/mysql DSN, e.g. "tcp(127.0.0.1:9306)/"
}

// Column maps one index column onto the source row.
type Column struct {
	Name     string `yaml:"name"`
	From     string `yaml:"from"`     // source column; defaults to Name
	JSONPath string `yaml:"jsonpath"` // applied to a JSON-encoded source value
	MVA      bool   `yaml:"mva"`      // inline as a multi-valued attribute list
	Default  any    `yaml:"default"`  // used when the source value is NULL
}

// Source returns the source column the value is read from.
func (c Column) Source() string {
	if c.From != "" {
		return c.From
	}
	return c.Name
}

// JobConfig describes one table → index rebuild.
type JobConfig struct {
	Name      string         `yaml:"name"`
	Table     string         `yaml:"table"`
	Index     string         `yaml:"index"`
	Condition string         `yaml:"condition"`
	IDColumn  string         `yaml:"id_column"`
	MVA       []string       `yaml:"mva"` // extra MVA columns when Columns is empty
	Options   map[string]any `yaml:"options"`
	Columns   []Column       `yaml:"columns"`
}

// ID returns the configured identifier column or DefaultIDColumn.
func (j JobConfig) ID() string {
	if j.IDColumn != "" {
		return j.IDColumn
	}
	return DefaultIDColumn
}

// Model converts the job into its display form.
func (j JobConfig) Model() models.Job {
	return models.Job{
		Name:      j.Name,
		Table:     j.Table,
		Index:     j.Index,
		Condition: j.Condition,
		IDColumn:  j.ID(),
	}
}

// File is the root of rtindex.yaml.
type File struct {
	Source    SourceConfig   `yaml:"source"`
	Searchd   SearchdConfig  `yaml:"searchd"`
	Rebuild   map[string]any `yaml:"rebuild"`
	Messenger string         `yaml:"messenger"` // "writer" (default) | "log"
	Jobs      []JobConfig    `yaml:"jobs"`

	// Path is the file the configuration was loaded from.
	Path string `yaml:"-"`
}

// Load reads and parses the YAML file at path. Environment variables in
// DSNs are expanded.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return Parse(data, path)
}

// Parse decodes a YAML document. path is recorded for diagnostics only.
func Parse(data []byte, path string) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("config.Parse %s: %w", path, err)
	}
	f.Path = path
	f.Source.DSN = os.ExpandEnv(f.Source.DSN)
	f.Searchd.DSN = os.ExpandEnv(f.Searchd.DSN)
	if f.Rebuild == nil {
		f.Rebuild = make(map[string]any)
	}
	return &f, nil
}

// Validate reports the first structural problem in the file.
func (f *File) Validate() error {
	if strings.TrimSpace(f.Source.Driver) == "" {
		return fmt.Errorf("config: source.driver is required")
	}
	if strings.TrimSpace(f.Source.DSN) == "" {
		return fmt.Errorf("config: source.dsn is required")
	}
	if strings.TrimSpace(f.Searchd.DSN) == "" {
		return fmt.Errorf("config: searchd.dsn is required")
	}
	if len(f.Jobs) == 0 {
		return fmt.Errorf("config: %w", ErrNoJobs)
	}
	seen := make(map[string]bool, len(f.Jobs))
	for i, j := range f.Jobs {
		if j.Name == "" {
			return fmt.Errorf("config: jobs[%d]: name is required", i)
		}
		if seen[j.Name] {
			return fmt.Errorf("config: duplicate job name %q", j.Name)
		}
		seen[j.Name] = true
		if j.Table == "" || j.Index == "" {
			return fmt.Errorf("config: job %q: table and index are required", j.Name)
		}
		for k, col := range j.Columns {
			if col.Name == "" {
				return fmt.Errorf("config: job %q: columns[%d]: name is required", j.Name, k)
			}
		}
	}
	return nil
}

// Job returns the job named name.
func (f *File) Job(name string) (JobConfig, bool) {
	for _, j := range f.Jobs {
		if j.Name == name {
			return j, true
		}
	}
	return JobConfig{}, false
}

// JobOptions layers the job's own options, then overrides, over the global
// rebuild section and resolves the result.
func (f *File) JobOptions(job JobConfig, overrides map[string]any) RebuildConfig {
	return Resolve(MergeOptions(f.Rebuild, job.Options, overrides))
}

// ---------------------------------------------------------------------------
// Config path resolution
// ---------------------------------------------------------------------------

// normalizePath expands ~ and makes the path absolute.
func normalizePath(path string) (string, error) {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		path = filepath.Join(home, path[2:])
	}
	return filepath.Abs(os.ExpandEnv(path))
}

// ResolveConfigPath returns the config file path and the source of the resolution.
// Priority: explicit flag → RTINDEX_CONFIG env → ./rtindex.yaml
// source is one of "flag", "env", or "default".
func ResolveConfigPath(flagPath string) (path, source string) {
	if flagPath != "" {
		if p, err := normalizePath(flagPath); err == nil {
			return p, "flag"
		}
		return flagPath, "flag"
	}
	if env := os.Getenv(EnvConfigPath); env != "" {
		if p, err := normalizePath(env); err == nil {
			return p, "env"
		}
	}
	p, err := normalizePath(DefaultFileName)
	if err != nil {
		return DefaultFileName, "default"
	}
	return p, "default"
}

// Template is written by `rtindex config init`.
const Template = `# rtindex configuration

# Relational database rows are read from.
source:
  driver: mysql                 # mysql | postgres | sqlite | sqlite3 | sqlserver
  dsn: "${RTINDEX_SOURCE_DSN}"  # environment variables are expanded

# SphinxQL listener of the search daemon (MySQL protocol).
searchd:
  dsn: "tcp(127.0.0.1:9306)/"

# Defaults for every job; a job's own "options" map wins.
rebuild:
  chunk_length: 500
  sleep_after_chunk: true
  sleep_time: 1                 # 0 disables sleeping between chunks
  log_before_index: true
  log_after_index: true
  log_before_chunk: true
  log_after_chunk: true
  log_rows_inside_chunk: false
  log_total_rows_found: true
  truncate_reconfigure: true

jobs:
  - name: articles
    table: articles
    index: rt_articles
    condition: "is_published = 1"
    columns:
      - name: id
      - name: title
      - name: body
        from: content
      - name: tag_ids
        from: tags_json
        jsonpath: "$[*].id"
        mva: true
`
