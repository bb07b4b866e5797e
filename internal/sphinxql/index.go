package sphinxql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Conn is the subset of a SphinxQL connection the rebuild needs.
// *sql.DB, *sql.Conn and *sql.Tx satisfy it.
type Conn interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// IndexExists reports whether the daemon's catalog lists a table or index
// named exactly name.
func IndexExists(ctx context.Context, conn Conn, name string) (bool, error) {
	if name == "" {
		return false, nil
	}
	q := "SHOW TABLES LIKE '" + quote(name) + "'"
	rows, err := conn.QueryContext(ctx, q)
	if err != nil {
		return false, fmt.Errorf("IndexExists %s: %w", name, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return false, fmt.Errorf("IndexExists %s: %w", name, err)
	}
	found := false
	for rows.Next() {
		vals := make([]sql.RawBytes, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return false, fmt.Errorf("IndexExists %s: scan: %w", name, err)
		}
		// LIKE treats _ and % as wildcards; only an exact name counts.
		if len(vals) > 0 && string(vals[0]) == name {
			found = true
		}
	}
	if err := rows.Err(); err != nil {
		return false, fmt.Errorf("IndexExists %s: %w", name, err)
	}
	return found, nil
}

// TruncateQuery returns the TRUNCATE RTINDEX statement for name.
func TruncateQuery(name string, reconfigure bool) string {
	q := "TRUNCATE RTINDEX " + name
	if reconfigure {
		q += " WITH RECONFIGURE"
	}
	return q
}

// Truncate removes every document from the real-time index name. With
// reconfigure the daemon also reloads the index settings from its config.
func Truncate(ctx context.Context, conn Conn, name string, reconfigure bool) error {
	q := TruncateQuery(name, reconfigure)
	if _, err := conn.ExecContext(ctx, q); err != nil {
		return fmt.Errorf("Truncate %s: %w\nSQL: %s", name, err, q)
	}
	return nil
}

// Replace executes st. Placeholders are bound positionally; the searchd
// connection interpolates them client-side (see Open).
func Replace(ctx context.Context, conn Conn, st Statement) error {
	q, args := st.Bind()
	if _, err := conn.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("Replace: %w\nSQL: %s", err, st.Query)
	}
	return nil
}

// quote escapes s for use inside a single-quoted SphinxQL string.
func quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}
