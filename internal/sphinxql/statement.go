// Package sphinxql builds and executes the SphinxQL statements used to
// maintain a real-time index: REPLACE for rows, SHOW TABLES for existence
// checks and TRUNCATE RTINDEX for the initial wipe.
package sphinxql

import (
	"fmt"
	"slices"
	"strings"

	"github.com/go-ports/rtindex/internal/models"
)

// Statement is a REPLACE statement together with the values bound to it.
type Statement struct {
	// Query is the statement template: a :name placeholder for every bound
	// column and a parenthesised literal for every MVA column.
	Query string
	// Params holds the bound values in column order. MVA columns are absent.
	Params *models.Row

	table string
	slots []slot
}

// slot is one entry of the VALUES list.
type slot struct {
	column  string
	literal string // inlined text; empty for a bound column
	inline  bool
}

// String returns the statement template.
func (s Statement) String() string { return s.Query }

// Columns returns the column list in statement order.
func (s Statement) Columns() []string {
	cols := make([]string, len(s.slots))
	for i, sl := range s.slots {
		cols[i] = sl.column
	}
	return cols
}

// Bind renders the statement with positional ? placeholders and returns the
// arguments in the same order. MVA literals stay inline.
func (s Statement) Bind() (string, []any) {
	values := make([]string, len(s.slots))
	args := make([]any, 0, len(s.slots))
	for i, sl := range s.slots {
		if sl.inline {
			values[i] = sl.literal
			continue
		}
		values[i] = "?"
		v, _ := s.Params.Get(sl.column)
		args = append(args, v)
	}
	return render(s.table, s.Columns(), values), args
}

// BuildReplace builds REPLACE INTO table (c1, c2) VALUES (:c1, :c2) with one
// placeholder per column of set, in set's order. Params is a copy of set.
func BuildReplace(table string, set *models.Row) Statement {
	return BuildReplaceMVA(table, set, nil)
}

// BuildReplaceMVA is BuildReplace with the columns listed in mva inlined as
// "(value)" instead of bound. Multi-valued attributes cannot be bound as
// parameters, so their values are written into the statement verbatim; the
// caller must make sure they hold nothing but a comma-separated value list.
// With an empty mva the result equals BuildReplace.
func BuildReplaceMVA(table string, set *models.Row, mva []string) Statement {
	st := Statement{
		table:  table,
		Params: models.NewRow(),
	}
	cols := models.Columns(set)
	values := make([]string, len(cols))
	st.slots = make([]slot, len(cols))

	for i, col := range cols {
		v, _ := set.Get(col)
		if slices.Contains(mva, col) {
			lit := "(" + mvaText(v) + ")"
			st.slots[i] = slot{column: col, literal: lit, inline: true}
			values[i] = lit
			continue
		}
		st.slots[i] = slot{column: col}
		values[i] = ":" + col
		st.Params.Set(col, v)
	}

	st.Query = render(table, cols, values)
	return st
}

func render(table string, cols, values []string) string {
	var b strings.Builder
	b.WriteString("REPLACE INTO ")
	b.WriteString(table)
	b.WriteString(" (")
	b.WriteString(strings.Join(cols, ", "))
	b.WriteString(") VALUES (")
	b.WriteString(strings.Join(values, ", "))
	b.WriteString(")")
	return b.String()
}

// mvaText formats an MVA value for inlining. Byte slices, which SQL drivers
// return for text columns, are treated as strings.
func mvaText(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	default:
		return fmt.Sprint(x)
	}
}
