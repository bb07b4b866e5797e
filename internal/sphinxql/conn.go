package sphinxql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
)

// pingTimeout bounds the connectivity check performed by Open.
const pingTimeout = 5 * time.Second

// Open connects to a search daemon's SphinxQL listener. dsn uses the
// go-sql-driver/mysql format, e.g. "tcp(127.0.0.1:9306)/".
//
// The daemon does not implement server-side prepared statements, so
// parameter interpolation is always switched on: bound values are escaped
// by the driver and sent as plain text.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("sphinxql.Open: parse dsn: %w", err)
	}
	cfg.InterpolateParams = true
	if cfg.Net == "" {
		cfg.Net = "tcp"
	}

	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("sphinxql.Open: %w", err)
	}
	db := sql.OpenDB(connector)
	// One long-lived connection; rebuilds are strictly sequential.
	db.SetMaxOpenConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sphinxql.Open: ping %s: %w", cfg.Addr, err)
	}
	return db, nil
}
