package source

import (
	"strconv"
	"strings"
)

// Dialect renders the count and page queries for a family of databases.
type Dialect string

const (
	// DialectLimit paginates with LIMIT n OFFSET m (MySQL, PostgreSQL, SQLite).
	DialectLimit Dialect = "limit"
	// DialectOffsetFetch paginates with OFFSET m ROWS FETCH NEXT n ROWS ONLY (SQL Server).
	DialectOffsetFetch Dialect = "offset-fetch"
)

// DialectFor returns the dialect spoken by the named driver.
func DialectFor(driver string) Dialect {
	switch strings.ToLower(driver) {
	case "sqlserver", "mssql":
		return DialectOffsetFetch
	default:
		return DialectLimit
	}
}

// CountQuery returns SELECT COUNT(*) for table, filtered by condition when set.
// condition is raw SQL without the WHERE keyword.
func (Dialect) CountQuery(table, condition string) string {
	return "SELECT COUNT(*) AS cnt FROM " + table + where(condition)
}

// ChunkQuery returns the SELECT for rows [offset, offset+limit) of table,
// newest identifier first.
func (d Dialect) ChunkQuery(table, condition, idColumn string, offset, limit int) string {
	q := "SELECT * FROM " + table + where(condition) + " ORDER BY " + idColumn + " DESC"
	if d == DialectOffsetFetch {
		return q + " OFFSET " + strconv.Itoa(offset) + " ROWS FETCH NEXT " + strconv.Itoa(limit) + " ROWS ONLY"
	}
	return q + " LIMIT " + strconv.Itoa(limit) + " OFFSET " + strconv.Itoa(offset)
}

func where(condition string) string {
	condition = strings.TrimSpace(condition)
	if condition == "" {
		return ""
	}
	return " WHERE " + condition
}
