package source_test

import (
	"context"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/go-ports/rtindex/internal/models"
	"github.com/go-ports/rtindex/internal/source"
	"github.com/go-ports/rtindex/internal/source/sourcetest"
)

// ---------------------------------------------------------------------------
// Dialect
// ---------------------------------------------------------------------------

func TestDialect_Queries(t *testing.T) {
	c := qt.New(t)

	tests := []struct {
		name      string
		dialect   source.Dialect
		condition string
		wantCount string
		wantChunk string
	}{
		{
			name:      "limit without condition",
			dialect:   source.DialectLimit,
			wantCount: "SELECT COUNT(*) AS cnt FROM articles",
			wantChunk: "SELECT * FROM articles ORDER BY id DESC LIMIT 50 OFFSET 100",
		},
		{
			name:      "limit with condition",
			dialect:   source.DialectLimit,
			condition: " published = 1 ",
			wantCount: "SELECT COUNT(*) AS cnt FROM articles WHERE published = 1",
			wantChunk: "SELECT * FROM articles WHERE published = 1 ORDER BY id DESC LIMIT 50 OFFSET 100",
		},
		{
			name:      "offset fetch",
			dialect:   source.DialectOffsetFetch,
			condition: "published = 1",
			wantCount: "SELECT COUNT(*) AS cnt FROM articles WHERE published = 1",
			wantChunk: "SELECT * FROM articles WHERE published = 1 ORDER BY id DESC OFFSET 100 ROWS FETCH NEXT 50 ROWS ONLY",
		},
	}

	for _, tt := range tests {
		c.Run(tt.name, func(c *qt.C) {
			c.Assert(tt.dialect.CountQuery("articles", tt.condition), qt.Equals, tt.wantCount)
			c.Assert(tt.dialect.ChunkQuery("articles", tt.condition, "id", 100, 50), qt.Equals, tt.wantChunk)
		})
	}
}

func TestDialectFor(t *testing.T) {
	c := qt.New(t)
	c.Assert(source.DialectFor("sqlserver"), qt.Equals, source.DialectOffsetFetch)
	c.Assert(source.DialectFor("MSSQL"), qt.Equals, source.DialectOffsetFetch)
	for _, d := range []string{"mysql", "postgres", "pgx", "sqlite", "sqlite3", ""} {
		c.Assert(source.DialectFor(d), qt.Equals, source.DialectLimit)
	}
}

// ---------------------------------------------------------------------------
// Count / Fetch
// ---------------------------------------------------------------------------

func TestCount_HappyPath(t *testing.T) {
	c := qt.New(t)

	db := sourcetest.Articles(t, sourcetest.Path(t), 7)
	ctx := context.Background()

	n, err := source.Count(ctx, db, source.DialectLimit, "articles", "")
	c.Assert(err, qt.IsNil)
	c.Assert(n, qt.Equals, 7)

	n, err = source.Count(ctx, db, source.DialectLimit, "articles", "published = 1")
	c.Assert(err, qt.IsNil)
	c.Assert(n, qt.Equals, 4)
}

func TestCount_FailurePath(t *testing.T) {
	c := qt.New(t)

	db := sourcetest.Open(t, sourcetest.Path(t))
	_, err := source.Count(context.Background(), db, source.DialectLimit, "missing", "")
	c.Assert(err, qt.ErrorMatches, `(?s)source.Count missing: .*no such table.*SQL: SELECT COUNT\(\*\) AS cnt FROM missing`)
}

func TestFetch_HappyPath(t *testing.T) {
	c := qt.New(t)

	db := sourcetest.Articles(t, sourcetest.Path(t), 5)
	ctx := context.Background()

	read := func(c *qt.C, cond string, offset, limit int) ([]any, []*models.Row) {
		cur, err := source.Fetch(ctx, db, source.DialectLimit, "articles", cond, "id", offset, limit)
		c.Assert(err, qt.IsNil)
		defer cur.Close()
		var ids []any
		var rows []*models.Row
		for cur.Next() {
			id, _ := cur.Row().Get("id")
			ids = append(ids, id)
			rows = append(rows, cur.Row())
		}
		c.Assert(cur.Err(), qt.IsNil)
		return ids, rows
	}

	c.Run("newest identifier first", func(c *qt.C) {
		ids, _ := read(c, "", 0, 3)
		c.Assert(ids, qt.DeepEquals, []any{int64(5), int64(4), int64(3)})
	})

	c.Run("offset pages continue the order", func(c *qt.C) {
		ids, _ := read(c, "", 3, 3)
		c.Assert(ids, qt.DeepEquals, []any{int64(2), int64(1)})
	})

	c.Run("condition filters", func(c *qt.C) {
		ids, _ := read(c, "published = 1", 0, 10)
		c.Assert(ids, qt.DeepEquals, []any{int64(5), int64(3), int64(1)})
	})

	c.Run("rows keep table column order and text as strings", func(c *qt.C) {
		_, rows := read(c, "", 0, 1)
		c.Assert(rows, qt.HasLen, 1)
		c.Assert(models.Columns(rows[0]), qt.DeepEquals, []string{"id", "title", "content", "tags_json", "published"})
		title, _ := rows[0].Get("title")
		c.Assert(title, qt.Equals, "title 5")
	})

	c.Run("page past the end is empty", func(c *qt.C) {
		ids, _ := read(c, "", 10, 5)
		c.Assert(ids, qt.HasLen, 0)
	})
}

func TestFetch_FailurePath(t *testing.T) {
	c := qt.New(t)

	db := sourcetest.Articles(t, sourcetest.Path(t), 1)
	_, err := source.Fetch(context.Background(), db, source.DialectLimit, "articles", "", "no_such_col", 0, 1)
	c.Assert(err, qt.ErrorMatches, `(?s)source.Fetch articles: .*SQL: SELECT \* FROM articles ORDER BY no_such_col DESC LIMIT 1 OFFSET 0`)
}

// ---------------------------------------------------------------------------
// Open
// ---------------------------------------------------------------------------

func TestOpen_HappyPath(t *testing.T) {
	c := qt.New(t)

	for _, driver := range []string{"sqlite3", "sqlite"} {
		c.Run(driver, func(c *qt.C) {
			path := sourcetest.Path(c.TB)
			sourcetest.Articles(c.TB, path, 3)

			db, err := source.Open(context.Background(), driver, path)
			c.Assert(err, qt.IsNil)
			defer db.Close()

			n, err := source.Count(context.Background(), db, source.DialectFor(driver), "articles", "")
			c.Assert(err, qt.IsNil)
			c.Assert(n, qt.Equals, 3)
		})
	}
}

func TestOpen_FailurePath(t *testing.T) {
	c := qt.New(t)

	tests := []struct {
		name    string
		driver  string
		dsn     string
		wantErr string
	}{
		{"empty dsn", "sqlite3", "  ", `source.Open: dsn must not be empty`},
		{"unknown driver", "oracle", "x", `source.Open: unknown driver "oracle" .*`},
		{"bad mysql dsn", "mysql", "app:pw@tcp(db:3306", `(?s)source.Open mysql: .*`},
		{"bad postgres dsn", "postgres", "postgres://%zz", `(?s)source.Open postgres: .*`},
	}

	for _, tt := range tests {
		c.Run(tt.name, func(c *qt.C) {
			_, err := source.Open(context.Background(), tt.driver, tt.dsn)
			c.Assert(err, qt.ErrorMatches, tt.wantErr)
		})
	}
}
