package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sagarc03/boxgate"
	"github.com/sagarc03/boxgate/config"
	"github.com/sagarc03/boxgate/database"
	"github.com/sagarc03/boxgate/objectstore/filesystem"
	"github.com/sagarc03/boxgate/objectstore/memory"
	"github.com/sagarc03/boxgate/objectstore/s3store"
	"github.com/sagarc03/boxgate/ratelimit"
)

// openDatabase connects to the SQL backend and prepares its schema: tables
// are created when auto_migrate is set, otherwise they must already exist.
func openDatabase(ctx context.Context, cfg config.DatabaseConfig) (database.Database, error) {
	db, err := database.Connect(ctx, cfg.Config)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	if cfg.AutoMigrate {
		if err = db.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migrate database: %w", err)
		}
		slog.Debug("database migration complete")
	}

	if err = db.Validate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("validate database schema: %w", err)
	}

	slog.Info("connected to database", "type", cfg.Type)
	return db, nil
}

// openObjectStore builds the configured object store. The returned func
// releases it.
func openObjectStore(ctx context.Context, cfg config.StorageConfig) (boxgate.ObjectStore, func(), error) {
	switch cfg.Type {
	case "filesystem":
		store, err := filesystem.Open(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		slog.Info("using filesystem object store", "path", cfg.Path)
		return store, func() { _ = store.Close() }, nil
	case "s3":
		store, err := s3store.Connect(ctx, cfg.S3.Store())
		if err != nil {
			return nil, nil, err
		}
		if err = store.Ping(ctx); err != nil {
			return nil, nil, fmt.Errorf("ping s3 bucket %q: %w", cfg.S3.Bucket, err)
		}
		slog.Info("using s3 object store", "bucket", cfg.S3.Bucket, "endpoint", cfg.S3.Endpoint)
		return store, func() {}, nil
	case "memory":
		slog.Warn("using in-memory object store; objects are lost on restart")
		return memory.New(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}

// counterStore picks where rate limit counters live. Database counters are
// shared by every instance using the same database.
func counterStore(cfg config.RateLimitConfig, db database.Database) boxgate.CounterStore {
	if cfg.Store == "database" {
		return db.Counters()
	}
	return ratelimit.NewMemoryStore()
}
