// Package models defines the core data types shared by the rebuild pipeline.
package models

import (
	"fmt"
	"time"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Row is an ordered column → value mapping. It carries both the rows fetched
// from the source table and the update sets written into the index; column
// order is significant because it drives the REPLACE column list.
type Row = orderedmap.OrderedMap[string, any]

// NewRow returns an empty Row.
func NewRow() *Row {
	return orderedmap.New[string, any]()
}

// RowOf builds a Row from alternating column/value arguments.
// It panics on an odd argument count or a non-string column name.
func RowOf(kv ...any) *Row {
	if len(kv)%2 != 0 {
		panic("models.RowOf: odd number of arguments")
	}
	r := NewRow()
	for i := 0; i < len(kv); i += 2 {
		col, ok := kv[i].(string)
		if !ok {
			panic(fmt.Sprintf("models.RowOf: column name at %d is %T, not string", i, kv[i]))
		}
		r.Set(col, kv[i+1])
	}
	return r
}

// Columns returns the column names of r in insertion order.
func Columns(r *Row) []string {
	if r == nil {
		return nil
	}
	cols := make([]string, 0, r.Len())
	for pair := r.Oldest(); pair != nil; pair = pair.Next() {
		cols = append(cols, pair.Key)
	}
	return cols
}

// CloneRow returns a shallow copy of r preserving column order.
func CloneRow(r *Row) *Row {
	out := NewRow()
	if r == nil {
		return out
	}
	for pair := r.Oldest(); pair != nil; pair = pair.Next() {
		out.Set(pair.Key, pair.Value)
	}
	return out
}

// Job describes one configured table → index rebuild.
type Job struct {
	Name      string
	Table     string
	Index     string
	Condition string
	IDColumn  string
}

// RebuildResult is returned from Service.Rebuild.
type RebuildResult struct {
	Job      string
	Table    string
	Index    string
	Found    int // rows matching the condition when counting started
	Rows     int // rows written into the index
	Chunks   int
	Duration time.Duration
}
