package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sagarc03/boxgate"
)

// RedirectRepo stores redirect entries in a PostgreSQL table.
type RedirectRepo struct {
	pool      *pgxpool.Pool
	tableName string
}

// NewRedirectRepo returns a repo on an existing, migrated table.
func NewRedirectRepo(pool *pgxpool.Pool, tableName string) (*RedirectRepo, error) {
	if !boxgate.IsValidTableName(tableName) {
		return nil, fmt.Errorf("new redirect repo: invalid table name: %s", tableName)
	}
	return &RedirectRepo{pool: pool, tableName: tableName}, nil
}

func (r *RedirectRepo) Lookup(ctx context.Context, key string) (string, error) {
	query := fmt.Sprintf(`SELECT url FROM %s WHERE key = $1`, pgx.Identifier{r.tableName}.Sanitize())

	var url string
	err := r.pool.QueryRow(ctx, query, key).Scan(&url)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
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

	query := fmt.Sprintf(`
		INSERT INTO %s (key, url, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET
			url = EXCLUDED.url,
			updated_at = NOW()
		RETURNING key, url, updated_at
	`, pgx.Identifier{r.tableName}.Sanitize())

	var entry boxgate.RedirectEntry
	if err := r.pool.QueryRow(ctx, query, key, url).Scan(&entry.Key, &entry.URL, &entry.UpdatedAt); err != nil {
		return boxgate.RedirectEntry{}, fmt.Errorf("set redirect %s: %w", key, err)
	}
	entry.UpdatedAt = entry.UpdatedAt.UTC()
	return entry, nil
}

func (r *RedirectRepo) Delete(ctx context.Context, key string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE key = $1`, pgx.Identifier{r.tableName}.Sanitize())

	tag, err := r.pool.Exec(ctx, query, key)
	if err != nil {
		return fmt.Errorf("delete redirect %s: %w", key, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete redirect %s: %w", key, boxgate.ErrNotFound)
	}
	return nil
}

func (r *RedirectRepo) List(ctx context.Context) ([]boxgate.RedirectEntry, error) {
	query := fmt.Sprintf(`SELECT key, url, updated_at FROM %s ORDER BY key`, pgx.Identifier{r.tableName}.Sanitize())

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list redirects: %w", err)
	}
	defer rows.Close()

	var entries []boxgate.RedirectEntry
	for rows.Next() {
		var entry boxgate.RedirectEntry
		var updatedAt time.Time
		if err := rows.Scan(&entry.Key, &entry.URL, &updatedAt); err != nil {
			return nil, fmt.Errorf("list redirects: scan: %w", err)
		}
		entry.UpdatedAt = updatedAt.UTC()
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list redirects: rows: %w", err)
	}

	return entries, nil
}
