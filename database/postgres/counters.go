package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sagarc03/boxgate"
)

// CounterStore keeps rate limit counters in PostgreSQL, shared by every
// gateway instance pointed at the same database.
type CounterStore struct {
	pool      *pgxpool.Pool
	tableName string
	now       func() time.Time
}

func NewCounterStore(pool *pgxpool.Pool, tableName string) *CounterStore {
	return &CounterStore{pool: pool, tableName: tableName, now: time.Now}
}

// WithClock replaces the time source, for tests.
func (c *CounterStore) WithClock(now func() time.Time) *CounterStore {
	c.now = now
	return c
}

var _ boxgate.CounterStore = (*CounterStore)(nil)

// Increment is a single upsert; the row lock serializes concurrent callers.
// An expired row restarts from delta with a fresh ttl.
func (c *CounterStore) Increment(ctx context.Context, key string, delta int64, ttl time.Duration) (int64, error) {
	now := c.now().UTC()
	table := pgx.Identifier{c.tableName}.Sanitize()

	query := fmt.Sprintf(`
		INSERT INTO %[1]s AS t (key, count, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET
			count = CASE WHEN t.expires_at <= $4 THEN EXCLUDED.count ELSE t.count + EXCLUDED.count END,
			expires_at = CASE WHEN t.expires_at <= $4 THEN EXCLUDED.expires_at ELSE t.expires_at END
		RETURNING count
	`, table)

	var count int64
	if err := c.pool.QueryRow(ctx, query, key, delta, now.Add(ttl), now).Scan(&count); err != nil {
		return 0, fmt.Errorf("increment %s: %w", key, err)
	}
	return count, nil
}

func (c *CounterStore) Get(ctx context.Context, key string) (int64, error) {
	query := fmt.Sprintf(`SELECT COALESCE(SUM(count), 0)::BIGINT FROM %s WHERE key = $1 AND expires_at > $2`,
		pgx.Identifier{c.tableName}.Sanitize())

	var count int64
	if err := c.pool.QueryRow(ctx, query, key, c.now().UTC()).Scan(&count); err != nil {
		return 0, fmt.Errorf("get counter %s: %w", key, err)
	}
	return count, nil
}

func (c *CounterStore) Sweep(ctx context.Context) (int, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE expires_at <= $1`, pgx.Identifier{c.tableName}.Sanitize())

	tag, err := c.pool.Exec(ctx, query, c.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("sweep counters: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
