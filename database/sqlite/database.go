package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sagarc03/boxgate"

	_ "modernc.org/sqlite" // SQLite driver
)

// Database provides SQLite database operations.
type Database struct {
	db     *sql.DB
	tables boxgate.Tables
}

// Connect opens a SQLite database. The pool is limited to a single
// connection so ":memory:" databases are shared and writes serialize.
func Connect(ctx context.Context, dsn string, tables boxgate.Tables) (*Database, error) {
	if err := tables.Validate(); err != nil {
		return nil, fmt.Errorf("connect sqlite: %w", err)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect sqlite: ping: %w", err)
	}

	return &Database{
		db:     db,
		tables: tables,
	}, nil
}

// Ping verifies the database connection is alive.
func (d *Database) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// Migrate creates the redirect and rate bucket tables if missing.
func (d *Database) Migrate(ctx context.Context) error {
	if err := Migrate(ctx, d.db, d.tables); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Validate checks that the database schema matches expected structure.
func (d *Database) Validate(ctx context.Context) error {
	return ValidateSchema(ctx, d.db, d.tables)
}

func (d *Database) Redirects() boxgate.RedirectRepo {
	return &RedirectRepo{db: d.db, tableName: d.tables.Redirects}
}

func (d *Database) Counters() boxgate.CounterStore {
	return NewCounterStore(d.db, d.tables.RateBuckets)
}

// Close closes the database connection.
func (d *Database) Close() error {
	return d.db.Close()
}
