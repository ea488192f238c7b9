package ratelimit_test

import (
	"context"
	"testing"
	"time"

	"github.com/sagarc03/boxgate/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_IncrementAndExpire(t *testing.T) {
	now := time.Unix(1000, 0)
	store := ratelimit.NewMemoryStore().WithClock(func() time.Time { return now })
	ctx := context.Background()

	n, err := store.Increment(ctx, "k", 1, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = store.Increment(ctx, "k", 2, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, int64(3), got)

	now = now.Add(time.Minute)
	got, err = store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Zero(t, got, "expired counter reads as zero")

	n, err = store.Increment(ctx, "k", 1, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n, "expired counter restarts")
}

func TestMemoryStore_Sweep(t *testing.T) {
	now := time.Unix(1000, 0)
	store := ratelimit.NewMemoryStore().WithClock(func() time.Time { return now })
	ctx := context.Background()

	_, err := store.Increment(ctx, "short", 1, time.Second)
	require.NoError(t, err)
	_, err = store.Increment(ctx, "long", 1, time.Hour)
	require.NoError(t, err)

	now = now.Add(time.Minute)
	removed, err := store.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, store.Len())
}

func TestMemoryStore_MissingKey(t *testing.T) {
	got, err := ratelimit.NewMemoryStore().Get(context.Background(), "nope")
	require.NoError(t, err)
	assert.Zero(t, got)
}
