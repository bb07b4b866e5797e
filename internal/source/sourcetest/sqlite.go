// Package sourcetest seeds throwaway SQLite source databases for tests.
package sourcetest

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3" // registers "sqlite3"
)

// ArticlesSchema is the table created by Articles.
const ArticlesSchema = `CREATE TABLE articles (
	id        INTEGER PRIMARY KEY,
	title     TEXT NOT NULL,
	content   TEXT,
	tags_json TEXT,
	published INTEGER NOT NULL DEFAULT 1
)`

// Path returns a fresh database file path under tb.TempDir().
func Path(tb testing.TB) string {
	tb.Helper()
	return filepath.Join(tb.TempDir(), "source.db")
}

// Open opens (creating) the SQLite database at path and closes it on cleanup.
func Open(tb testing.TB, path string) *sql.DB {
	tb.Helper()
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		tb.Fatalf("sourcetest: open %s: %v", path, err)
	}
	tb.Cleanup(func() { _ = db.Close() })
	return db
}

// Articles creates the articles table at path and inserts n rows with ids
// 1..n. Row i has title "title i", content "content i", tags_json
// [{"id":i},{"id":i+100}] and published = 1 for odd i, 0 for even i.
func Articles(tb testing.TB, path string, n int) *sql.DB {
	tb.Helper()
	db := Open(tb, path)
	Exec(tb, db, ArticlesSchema)
	for i := 1; i <= n; i++ {
		Exec(tb, db,
			`INSERT INTO articles (id, title, content, tags_json, published) VALUES (?, ?, ?, ?, ?)`,
			i, fmt.Sprintf("title %d", i), fmt.Sprintf("content %d", i),
			fmt.Sprintf(`[{"id":%d},{"id":%d}]`, i, i+100), i%2,
		)
	}
	return db
}

// Exec runs a statement and fails the test on error.
func Exec(tb testing.TB, db *sql.DB, query string, args ...any) {
	tb.Helper()
	if _, err := db.Exec(query, args...); err != nil {
		tb.Fatalf("sourcetest: %v\nSQL: %s", err, query)
	}
}
