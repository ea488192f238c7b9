// Package database connects the gateway to its SQL backend, which holds the
// redirect table and, when configured, the shared rate limit buckets.
//
// # Supported Backends
//
//   - PostgreSQL: pgx connection pool, suitable for several gateway instances
//   - SQLite: modernc.org/sqlite, a single file for single-node deployments
//
// # Usage
//
//	db, err := database.Connect(ctx, database.Config{
//	    Type: "sqlite",
//	    DSN:  "boxgate.db",
//	    Tables: boxgate.Tables{
//	        Redirects:   "redirects",
//	        RateBuckets: "rate_buckets",
//	    },
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// Connect never changes the schema. The serve command runs Migrate when
// database.auto_migrate is set and Validate otherwise.
//
// # Subpackages
//
//   - database/postgres: PostgreSQL implementation using pgx
//   - database/sqlite: SQLite implementation using modernc.org/sqlite
package database
