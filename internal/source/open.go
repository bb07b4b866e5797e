package source

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"      // registers "sqlite3"
	_ "github.com/microsoft/go-mssqldb" // registers "sqlserver"
	_ "modernc.org/sqlite"              // registers "sqlite"
)

// pingTimeout bounds the connectivity check performed by Open.
const pingTimeout = 5 * time.Second

// Drivers lists the driver names accepted by Open.
var Drivers = []string{"mysql", "postgres", "sqlite", "sqlite3", "sqlserver"}

// Open connects to the source database using driver and dsn.
//
//   - mysql:     go-sql-driver/mysql DSN, e.g. "app:secret@tcp(db:3306)/app"
//   - postgres:  pgx connection string or URL ("pgx" is accepted as an alias)
//   - sqlite:    pure-Go modernc.org/sqlite file path
//   - sqlite3:   mattn/go-sqlite3 (cgo) file path
//   - sqlserver: go-mssqldb URL ("mssql" is accepted as an alias)
func Open(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("source.Open: dsn must not be empty")
	}

	var (
		db  *sql.DB
		err error
	)
	switch strings.ToLower(driver) {
	case "mysql":
		db, err = openMySQL(dsn)
	case "postgres", "pgx":
		db, err = openPostgres(dsn)
	case "sqlite":
		db, err = sql.Open("sqlite", dsn)
	case "sqlite3":
		db, err = sql.Open("sqlite3", dsn)
	case "sqlserver", "mssql":
		db, err = sql.Open("sqlserver", dsn)
	default:
		return nil, fmt.Errorf("source.Open: unknown driver %q (want one of %s)", driver, strings.Join(Drivers, ", "))
	}
	if err != nil {
		return nil, fmt.Errorf("source.Open %s: %w", driver, err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("source.Open %s: ping: %w", driver, err)
	}
	return db, nil
}

func openMySQL(dsn string) (*sql.DB, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, err
	}
	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, err
	}
	return sql.OpenDB(connector), nil
}

func openPostgres(dsn string) (*sql.DB, error) {
	cfg, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	return stdlib.OpenDB(*cfg), nil
}
