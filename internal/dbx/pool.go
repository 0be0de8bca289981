package dbx

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/dmitrijs2005/dsqlctl/internal/common"
)

// PoolOptions sizes the database/sql pool that is shared by all concurrent
// callers. database/sql owns checkout and release of physical connections.
type PoolOptions struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration

	// BeforeConnect, when set, runs before every new physical connection and
	// may replace credentials (e.g. a freshly generated auth token).
	BeforeConnect func(ctx context.Context, cfg *pgx.ConnConfig) error
}

// pingDB is a seam for tests.
var pingDB = func(ctx context.Context, db *sql.DB) error {
	return db.PingContext(ctx)
}

// Open parses dsn, opens a pgx-backed *sql.DB and verifies it with a ping.
// A DSN that pgx cannot parse yields common.ErrorEncoding.
func Open(ctx context.Context, dsn string, opts PoolOptions) (*sql.DB, error) {
	cfg, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: parse dsn: %w", common.ErrorEncoding, err)
	}

	var stdOpts []stdlib.OptionOpenDB
	if opts.BeforeConnect != nil {
		stdOpts = append(stdOpts, stdlib.OptionBeforeConnect(opts.BeforeConnect))
	}

	db := stdlib.OpenDB(*cfg, stdOpts...)
	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		db.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}

	if err := pingDB(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	return db, nil
}
