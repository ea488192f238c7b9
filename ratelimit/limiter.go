// Package ratelimit bounds request volume per client with two fixed-window
// counters kept in a shared boxgate.CounterStore.
//
// The global window counts every request. The unauthorized window counts
// only requests that failed authentication; once it trips, the client is
// locked out until the window advances, even with a valid token.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sagarc03/boxgate"
)

// Purpose names a counter family.
type Purpose string

const (
	PurposeAll          Purpose = "all"
	PurposeUnauthorized Purpose = "unauth"
)

// MaxGlobalLimit caps the per-window request limit.
const MaxGlobalLimit = 10000

// Config sets window widths and limits. A request is rejected once the
// window's counter exceeds its limit.
type Config struct {
	GlobalLimit        int
	GlobalWindow       time.Duration
	UnauthorizedLimit  int
	UnauthorizedWindow time.Duration
	// Grace extends counter expiry past the end of its window.
	Grace time.Duration
}

// DefaultConfig returns the production limits.
func DefaultConfig() Config {
	return Config{
		GlobalLimit:        120,
		GlobalWindow:       time.Minute,
		UnauthorizedLimit:  20,
		UnauthorizedWindow: 10 * time.Minute,
		Grace:              time.Minute,
	}
}

// Decision is the outcome of one counter check.
type Decision struct {
	Allowed bool
	Count   int64
	Limit   int
	// RetryAfter is the time left in the current window.
	RetryAfter time.Duration
}

// Limiter applies Config over a CounterStore. It holds no state of its own.
type Limiter struct {
	store boxgate.CounterStore
	cfg   Config
}

func New(store boxgate.CounterStore, cfg Config) (*Limiter, error) {
	if store == nil {
		return nil, errors.New("new limiter: counter store is required")
	}
	def := DefaultConfig()
	if cfg.GlobalLimit <= 0 {
		cfg.GlobalLimit = def.GlobalLimit
	}
	if cfg.GlobalLimit > MaxGlobalLimit {
		return nil, fmt.Errorf("new limiter: global limit %d exceeds %d", cfg.GlobalLimit, MaxGlobalLimit)
	}
	if cfg.GlobalWindow <= 0 {
		cfg.GlobalWindow = def.GlobalWindow
	}
	if cfg.UnauthorizedLimit <= 0 {
		cfg.UnauthorizedLimit = def.UnauthorizedLimit
	}
	if cfg.UnauthorizedWindow <= 0 {
		cfg.UnauthorizedWindow = def.UnauthorizedWindow
	}
	if cfg.Grace < 0 {
		cfg.Grace = 0
	}
	return &Limiter{store: store, cfg: cfg}, nil
}

// BucketKey returns the counter key for (purpose, client, window index).
func BucketKey(purpose Purpose, client string, index int64) string {
	return fmt.Sprintf("rl:%s:%s:%d", purpose, client, index)
}

func windowIndex(now time.Time, width time.Duration) int64 {
	return now.UnixNano() / int64(width)
}

func remaining(now time.Time, width time.Duration) time.Duration {
	return width - time.Duration(now.UnixNano()%int64(width))
}

func (l *Limiter) decide(count int64, limit int, now time.Time, width time.Duration) Decision {
	d := Decision{Allowed: count <= int64(limit), Count: count, Limit: limit}
	if !d.Allowed {
		d.RetryAfter = remaining(now, width)
	}
	return d
}

// AllowRequest counts one request from client in the global window.
func (l *Limiter) AllowRequest(ctx context.Context, client string, now time.Time) (Decision, error) {
	width := l.cfg.GlobalWindow
	key := BucketKey(PurposeAll, client, windowIndex(now, width))

	count, err := l.store.Increment(ctx, key, 1, width+l.cfg.Grace)
	if err != nil {
		return Decision{}, fmt.Errorf("allow request: %w", err)
	}
	return l.decide(count, l.cfg.GlobalLimit, now, width), nil
}

// RecordUnauthorized counts one failed authentication. The returned decision
// is not allowed once the client has exceeded the unauthorized limit.
func (l *Limiter) RecordUnauthorized(ctx context.Context, client string, now time.Time) (Decision, error) {
	width := l.cfg.UnauthorizedWindow
	key := BucketKey(PurposeUnauthorized, client, windowIndex(now, width))

	count, err := l.store.Increment(ctx, key, 1, width+l.cfg.Grace)
	if err != nil {
		return Decision{}, fmt.Errorf("record unauthorized: %w", err)
	}
	return l.decide(count, l.cfg.UnauthorizedLimit, now, width), nil
}

// LockedOut reads the unauthorized window without counting.
func (l *Limiter) LockedOut(ctx context.Context, client string, now time.Time) (Decision, error) {
	width := l.cfg.UnauthorizedWindow
	key := BucketKey(PurposeUnauthorized, client, windowIndex(now, width))

	count, err := l.store.Get(ctx, key)
	if err != nil {
		return Decision{}, fmt.Errorf("locked out: %w", err)
	}
	return l.decide(count, l.cfg.UnauthorizedLimit, now, width), nil
}
