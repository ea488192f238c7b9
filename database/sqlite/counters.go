package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sagarc03/boxgate"
)

// CounterStore keeps rate limit counters in SQLite so they survive restarts.
// Expiry is stored as unix milliseconds.
type CounterStore struct {
	db        *sql.DB
	tableName string
	now       func() time.Time
}

func NewCounterStore(db *sql.DB, tableName string) *CounterStore {
	return &CounterStore{db: db, tableName: tableName, now: time.Now}
}

// WithClock replaces the time source, for tests.
func (c *CounterStore) WithClock(now func() time.Time) *CounterStore {
	c.now = now
	return c
}

var _ boxgate.CounterStore = (*CounterStore)(nil)

// Increment is a single upsert, so concurrent increments on the same key
// never lose updates. An expired row restarts from delta with a fresh ttl.
func (c *CounterStore) Increment(ctx context.Context, key string, delta int64, ttl time.Duration) (int64, error) {
	now := c.now().UnixMilli()
	expiresAt := now + ttl.Milliseconds()
	table := quoteIdentifier(c.tableName)

	query := fmt.Sprintf(`
		INSERT INTO %[1]s (key, count, expires_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			count = CASE WHEN %[1]s.expires_at <= ? THEN excluded.count ELSE %[1]s.count + excluded.count END,
			expires_at = CASE WHEN %[1]s.expires_at <= ? THEN excluded.expires_at ELSE %[1]s.expires_at END
		RETURNING count
	`, table)

	var count int64
	if err := c.db.QueryRowContext(ctx, query, key, delta, expiresAt, now, now).Scan(&count); err != nil {
		return 0, fmt.Errorf("increment %s: %w", key, err)
	}
	return count, nil
}

func (c *CounterStore) Get(ctx context.Context, key string) (int64, error) {
	query := fmt.Sprintf(`SELECT COALESCE(SUM(count), 0) FROM %s WHERE key = ? AND expires_at > ?`, quoteIdentifier(c.tableName))

	var count int64
	if err := c.db.QueryRowContext(ctx, query, key, c.now().UnixMilli()).Scan(&count); err != nil {
		return 0, fmt.Errorf("get counter %s: %w", key, err)
	}
	return count, nil
}

func (c *CounterStore) Sweep(ctx context.Context) (int, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE expires_at <= ?`, quoteIdentifier(c.tableName))

	result, err := c.db.ExecContext(ctx, query, c.now().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("sweep counters: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sweep counters: rows affected: %w", err)
	}
	return int(n), nil
}
