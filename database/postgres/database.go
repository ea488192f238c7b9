package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sagarc03/boxgate"
)

// Database provides PostgreSQL database operations on a pgx pool.
type Database struct {
	pool   *pgxpool.Pool
	tables boxgate.Tables
}

// Connect establishes a connection pool to PostgreSQL.
func Connect(ctx context.Context, dsn string, tables boxgate.Tables) (*Database, error) {
	if err := tables.Validate(); err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	return &Database{
		pool:   pool,
		tables: tables,
	}, nil
}

// Ping verifies the database connection is alive.
func (d *Database) Ping(ctx context.Context) error {
	return d.pool.Ping(ctx)
}

// Migrate creates the redirect and rate bucket tables if missing.
func (d *Database) Migrate(ctx context.Context) error {
	if err := Migrate(ctx, d.pool, d.tables); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Validate checks that the database schema matches expected structure.
func (d *Database) Validate(ctx context.Context) error {
	return ValidateSchema(ctx, d.pool, d.tables)
}

func (d *Database) Redirects() boxgate.RedirectRepo {
	return &RedirectRepo{pool: d.pool, tableName: d.tables.Redirects}
}

func (d *Database) Counters() boxgate.CounterStore {
	return NewCounterStore(d.pool, d.tables.RateBuckets)
}

// Close closes the database connection pool.
func (d *Database) Close() error {
	d.pool.Close()
	return nil
}
