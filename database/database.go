package database

import (
	"context"
	"fmt"

	"github.com/sagarc03/boxgate"
	"github.com/sagarc03/boxgate/database/postgres"
	"github.com/sagarc03/boxgate/database/sqlite"
)

// Database is a connected SQL backend holding redirects and rate buckets.
type Database interface {
	Ping(ctx context.Context) error
	// Migrate creates missing tables. It is safe to run repeatedly.
	Migrate(ctx context.Context) error
	// Validate checks that existing tables have the expected columns.
	Validate(ctx context.Context) error
	Redirects() boxgate.RedirectRepo
	Counters() boxgate.CounterStore
	Close() error
}

// Config holds the configuration for connecting to a SQL backend.
type Config struct {
	Type   string         `mapstructure:"type" validate:"required,oneof=sqlite postgres"` // "sqlite" or "postgres"
	DSN    string         `mapstructure:"dsn" validate:"required"`                        // data source name
	Tables boxgate.Tables `mapstructure:"tables"`
}

// Connect opens the configured backend. It does not migrate; callers run
// Migrate or Validate depending on whether schema changes are allowed.
func Connect(ctx context.Context, cfg Config) (Database, error) {
	switch cfg.Type {
	case "sqlite":
		db, err := sqlite.Connect(ctx, cfg.DSN, cfg.Tables)
		if err != nil {
			return nil, err
		}
		return db, nil
	case "postgres":
		db, err := postgres.Connect(ctx, cfg.DSN, cfg.Tables)
		if err != nil {
			return nil, err
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.Type)
	}
}
