package config

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Option keys recognised by Resolve.
const (
	KeyChunkLength         = "chunk_length"
	KeySleepAfterChunk     = "sleep_after_chunk"
	KeySleepTime           = "sleep_time"
	KeyLogBeforeIndex      = "log_before_index"
	KeyLogAfterIndex       = "log_after_index"
	KeyLogBeforeChunk      = "log_before_chunk"
	KeyLogAfterChunk       = "log_after_chunk"
	KeyLogRowsInsideChunk  = "log_rows_inside_chunk"
	KeyLogTotalRowsFound   = "log_total_rows_found"
	KeyTruncateReconfigure = "truncate_reconfigure"
)

// RebuildConfig is the resolved option set for one index rebuild.
type RebuildConfig struct {
	ChunkLength     int  `yaml:"chunk_length"`
	SleepAfterChunk bool `yaml:"sleep_after_chunk"`
	SleepTime       int  `yaml:"sleep_time"` // seconds

	LogBeforeIndex     bool `yaml:"log_before_index"`
	LogAfterIndex      bool `yaml:"log_after_index"`
	LogBeforeChunk     bool `yaml:"log_before_chunk"`
	LogAfterChunk      bool `yaml:"log_after_chunk"`
	LogRowsInsideChunk bool `yaml:"log_rows_inside_chunk"`
	LogTotalRowsFound  bool `yaml:"log_total_rows_found"`

	// TruncateReconfigure appends WITH RECONFIGURE to the truncate statement.
	TruncateReconfigure bool `yaml:"truncate_reconfigure"`
}

// DefaultRebuild returns the option set used when nothing is overridden.
func DefaultRebuild() RebuildConfig {
	return RebuildConfig{
		ChunkLength:         500,
		SleepAfterChunk:     true,
		SleepTime:           1,
		LogBeforeIndex:      true,
		LogAfterIndex:       true,
		LogBeforeChunk:      true,
		LogAfterChunk:       true,
		LogRowsInsideChunk:  true,
		LogTotalRowsFound:   true,
		TruncateReconfigure: true,
	}
}

// SleepDuration returns the inter-chunk pause.
func (c RebuildConfig) SleepDuration() time.Duration {
	return time.Duration(c.SleepTime) * time.Second
}

// ToMap returns c as a flat option map keyed like Resolve's input.
func (c RebuildConfig) ToMap() map[string]any {
	return map[string]any{
		KeyChunkLength:         c.ChunkLength,
		KeySleepAfterChunk:     c.SleepAfterChunk,
		KeySleepTime:           c.SleepTime,
		KeyLogBeforeIndex:      c.LogBeforeIndex,
		KeyLogAfterIndex:       c.LogAfterIndex,
		KeyLogBeforeChunk:      c.LogBeforeChunk,
		KeyLogAfterChunk:       c.LogAfterChunk,
		KeyLogRowsInsideChunk:  c.LogRowsInsideChunk,
		KeyLogTotalRowsFound:   c.LogTotalRowsFound,
		KeyTruncateReconfigure: c.TruncateReconfigure,
	}
}

// Resolve fills a RebuildConfig from overrides, falling back to
// DefaultRebuild for every key that is absent or holds an unusable value.
// Unknown keys are ignored. A zero (or negative) sleep_time disables
// sleeping regardless of sleep_after_chunk.
func Resolve(overrides map[string]any) RebuildConfig {
	cfg := DefaultRebuild()

	intOpt(overrides, KeyChunkLength, &cfg.ChunkLength)
	intOpt(overrides, KeySleepTime, &cfg.SleepTime)

	boolOpt(overrides, KeySleepAfterChunk, &cfg.SleepAfterChunk)
	boolOpt(overrides, KeyLogBeforeIndex, &cfg.LogBeforeIndex)
	boolOpt(overrides, KeyLogAfterIndex, &cfg.LogAfterIndex)
	boolOpt(overrides, KeyLogBeforeChunk, &cfg.LogBeforeChunk)
	boolOpt(overrides, KeyLogAfterChunk, &cfg.LogAfterChunk)
	boolOpt(overrides, KeyLogRowsInsideChunk, &cfg.LogRowsInsideChunk)
	boolOpt(overrides, KeyLogTotalRowsFound, &cfg.LogTotalRowsFound)
	boolOpt(overrides, KeyTruncateReconfigure, &cfg.TruncateReconfigure)

	if cfg.SleepTime <= 0 {
		cfg.SleepTime = 0
		cfg.SleepAfterChunk = false
	}
	return cfg
}

// MergeOptions layers each map over the previous ones; later maps win.
// Nil maps are skipped. The inputs are not modified.
func MergeOptions(layers ...map[string]any) map[string]any {
	out := make(map[string]any)
	for _, layer := range layers {
		for k, v := range layer {
			out[k] = v
		}
	}
	return out
}

// ---------------------------------------------------------------------------
// Value coercion
// ---------------------------------------------------------------------------

func intOpt(m map[string]any, key string, dst *int) {
	v, ok := m[key]
	if !ok {
		return
	}
	if n, ok := toInt(v); ok {
		*dst = n
	}
}

func boolOpt(m map[string]any, key string, dst *bool) {
	v, ok := m[key]
	if !ok {
		return
	}
	if b, ok := toBool(v); ok {
		*dst = b
	}
}

// toInt accepts the numeric shapes produced by YAML, JSON and flag parsing.
func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case uint:
		return int(n), true
	case uint32:
		return int(n), true
	case uint64:
		return int(n), true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int(n), true
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		return i, err == nil
	}
	return 0, false
}

func toBool(v any) (bool, bool) {
	switch b := v.(type) {
	case bool:
		return b, true
	case int:
		return b != 0, true
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "1", "true", "yes", "on":
			return true, true
		case "0", "false", "no", "off":
			return false, true
		}
	}
	return false, false
}
