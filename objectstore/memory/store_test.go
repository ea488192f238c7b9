package memory_test

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/sagarc03/boxgate"
	"github.com/sagarc03/boxgate/objectstore/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func put(t *testing.T, s *memory.Store, key, body string) boxgate.ObjectInfo {
	t.Helper()
	info, err := s.Put(context.Background(), key, strings.NewReader(body), boxgate.PutOptions{Size: -1})
	require.NoError(t, err)
	return info
}

func TestStore_PutHeadGet(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	info := put(t, s, "01/a.txt", "hello")
	assert.Equal(t, int64(5), info.Size)
	assert.Equal(t, boxgate.DefaultContentType, info.ContentType)
	assert.NotEmpty(t, info.ETag)

	head, err := s.Head(ctx, "01/a.txt")
	require.NoError(t, err)
	assert.Equal(t, info, head)

	rc, err := s.Get(ctx, "01/a.txt", nil)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	rc, err = s.Get(ctx, "01/a.txt", &boxgate.ByteRange{Start: 1, End: 3})
	require.NoError(t, err)
	data, err = io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "ell", string(data))
}

func TestStore_Overwrite(t *testing.T) {
	s := memory.New()
	first := put(t, s, "k", "one")
	second := put(t, s, "k", "three")

	assert.NotEqual(t, first.ETag, second.ETag)
	assert.Equal(t, int64(5), second.Size)
	assert.Equal(t, 1, s.Len())
}

func TestStore_NotFound(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	_, err := s.Head(ctx, "missing")
	assert.ErrorIs(t, err, boxgate.ErrNotFound)

	_, err = s.Get(ctx, "missing", nil)
	assert.ErrorIs(t, err, boxgate.ErrNotFound)
}

func TestStore_GetRangeOutside(t *testing.T) {
	s := memory.New()
	put(t, s, "k", "abc")

	_, err := s.Get(context.Background(), "k", &boxgate.ByteRange{Start: 1, End: 3})
	assert.ErrorIs(t, err, boxgate.ErrInvalidInput)
}

func TestStore_ListPaginates(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	for i := range 7 {
		put(t, s, fmt.Sprintf("01/f%d", i), "x")
	}
	put(t, s, "02/other", "x")

	var keys []string
	cursor := ""
	pages := 0
	for {
		page, err := s.List(ctx, boxgate.ListQuery{Prefix: "01/", Cursor: cursor, Limit: 3})
		require.NoError(t, err)
		pages++
		for _, o := range page.Objects {
			keys = append(keys, o.Key)
		}
		if page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}

	assert.Equal(t, 3, pages)
	assert.Equal(t, []string{"01/f0", "01/f1", "01/f2", "01/f3", "01/f4", "01/f5", "01/f6"}, keys)
}

func TestStore_DeleteIgnoresMissing(t *testing.T) {
	s := memory.New()
	put(t, s, "a", "1")
	put(t, s, "b", "2")

	require.NoError(t, s.Delete(context.Background(), "a", "missing"))
	assert.Equal(t, 1, s.Len())
}

func TestStore_ConcurrentPut(t *testing.T) {
	s := memory.New()
	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Put(context.Background(), fmt.Sprintf("k%d", i), strings.NewReader("x"), boxgate.PutOptions{})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, s.Len())
}

func TestStore_CanceledContext(t *testing.T) {
	s := memory.New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Head(ctx, "k")
	assert.ErrorIs(t, err, context.Canceled)
}
