package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sagarc03/boxgate"
)

// RedirectRepo stores redirect entries in a single SQLite table.
// Timestamps are kept as RFC 3339 text in UTC.
type RedirectRepo struct {
	db        *sql.DB
	tableName string
	now       func() time.Time
}

// NewRedirectRepo returns a repo on an existing, migrated table.
func NewRedirectRepo(db *sql.DB, tableName string) (*RedirectRepo, error) {
	if !boxgate.IsValidTableName(tableName) {
		return nil, fmt.Errorf("new redirect repo: invalid table name: %s", tableName)
	}
	return &RedirectRepo{db: db, tableName: tableName}, nil
}

func (r *RedirectRepo) clock() time.Time {
	if r.now != nil {
		return r.now()
	}
	return time.Now()
}

func (r *RedirectRepo) Lookup(ctx context.Context, key string) (string, error) {
	query := fmt.Sprintf(`SELECT url FROM %s WHERE key = ?`, quoteIdentifier(r.tableName))

	var url string
	err := r.db.QueryRowContext(ctx, query, key).Scan(&url)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("lookup %s: %w", key, boxgate.ErrNotFound)
		}
		return "", fmt.Errorf("lookup %s: %w", key, err)
	}
	return url, nil
}

func (r *RedirectRepo) Set(ctx context.Context, key, url string) (boxgate.RedirectEntry, error) {
	if err := boxgate.ValidateRedirectKey(key); err != nil {
		return boxgate.RedirectEntry{}, fmt.Errorf("set redirect: %w", err)
	}
	if err := boxgate.ValidateRedirectTarget(url); err != nil {
		return boxgate.RedirectEntry{}, fmt.Errorf("set redirect: %w", err)
	}

	updatedAt := r.clock().UTC().Truncate(time.Second)
	query := fmt.Sprintf(`
		INSERT INTO %s (key, url, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			url = excluded.url,
			updated_at = excluded.updated_at
	`, quoteIdentifier(r.tableName))

	if _, err := r.db.ExecContext(ctx, query, key, url, updatedAt.Format(time.RFC3339)); err != nil {
		return boxgate.RedirectEntry{}, fmt.Errorf("set redirect %s: %w", key, err)
	}

	return boxgate.RedirectEntry{Key: key, URL: url, UpdatedAt: updatedAt}, nil
}

func (r *RedirectRepo) Delete(ctx context.Context, key string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE key = ?`, quoteIdentifier(r.tableName))

	result, err := r.db.ExecContext(ctx, query, key)
	if err != nil {
		return fmt.Errorf("delete redirect %s: %w", key, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete redirect %s: rows affected: %w", key, err)
	}
	if n == 0 {
		return fmt.Errorf("delete redirect %s: %w", key, boxgate.ErrNotFound)
	}
	return nil
}

func (r *RedirectRepo) List(ctx context.Context) ([]boxgate.RedirectEntry, error) {
	query := fmt.Sprintf(`SELECT key, url, updated_at FROM %s ORDER BY key`, quoteIdentifier(r.tableName))

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list redirects: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []boxgate.RedirectEntry
	for rows.Next() {
		var entry boxgate.RedirectEntry
		var updatedAt string
		if err := rows.Scan(&entry.Key, &entry.URL, &updatedAt); err != nil {
			return nil, fmt.Errorf("list redirects: scan: %w", err)
		}
		entry.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt)
		if err != nil {
			return nil, fmt.Errorf("list redirects: parse updated_at for %s: %w", entry.Key, err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list redirects: rows: %w", err)
	}

	return entries, nil
}
