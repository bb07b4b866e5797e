// Package source reads rows from the relational table an index is rebuilt
// from: row counts and descending-identifier pages of SELECT * results.
package source

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/go-ports/rtindex/internal/models"
)

// Querier is the subset of a database handle the rebuild reads through.
// *sql.DB, *sql.Conn and *sql.Tx satisfy it.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Count returns the number of rows in table matching condition.
func Count(ctx context.Context, q Querier, d Dialect, table, condition string) (int, error) {
	query := d.CountQuery(table, condition)
	var n sql.NullInt64
	if err := q.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("source.Count %s: %w\nSQL: %s", table, err, query)
	}
	return int(n.Int64), nil
}

// Cursor iterates the rows of one page. It must be closed.
type Cursor struct {
	rows *sql.Rows
	cols []string
	row  *models.Row
	err  error

	// Query is the SELECT the cursor was opened with.
	Query string
}

// Fetch runs the page query for [offset, offset+limit) ordered by idColumn
// descending and returns a cursor over the result.
func Fetch(ctx context.Context, q Querier, d Dialect, table, condition, idColumn string, offset, limit int) (*Cursor, error) {
	query := d.ChunkQuery(table, condition, idColumn, offset, limit)
	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("source.Fetch %s: %w\nSQL: %s", table, err, query)
	}
	cols, err := rows.Columns()
	if err != nil {
		rows.Close()
		return nil, fmt.Errorf("source.Fetch %s: columns: %w", table, err)
	}
	return &Cursor{rows: rows, cols: cols, Query: query}, nil
}

// Next advances to the next row. It returns false when the page is
// exhausted or scanning fails; check Err afterwards.
func (c *Cursor) Next() bool {
	if c.err != nil || !c.rows.Next() {
		return false
	}
	vals := make([]any, len(c.cols))
	ptrs := make([]any, len(c.cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	if err := c.rows.Scan(ptrs...); err != nil {
		c.err = fmt.Errorf("source: scan: %w", err)
		return false
	}
	row := models.NewRow()
	for i, col := range c.cols {
		// Convert []byte to string for TEXT columns.
		if b, ok := vals[i].([]byte); ok {
			row.Set(col, string(b))
		} else {
			row.Set(col, vals[i])
		}
	}
	c.row = row
	return true
}

// Row returns the current row.
func (c *Cursor) Row() *models.Row { return c.row }

// Err returns the first error met while iterating.
func (c *Cursor) Err() error {
	if c.err != nil {
		return c.err
	}
	return c.rows.Err()
}

// Close releases the underlying result set.
func (c *Cursor) Close() error { return c.rows.Close() }
