// Package memory provides an in-process ObjectStore. It backs tests and the
// "memory" storage type; contents are lost when the process exits.
package memory

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sagarc03/boxgate"
)

type object struct {
	data         []byte
	contentType  string
	etag         string
	lastModified time.Time
}

// Store is a mutex-guarded map of key to object.
type Store struct {
	mu      sync.RWMutex
	objects map[string]object
	now     func() time.Time
}

func New() *Store {
	return &Store{
		objects: make(map[string]object),
		now:     time.Now,
	}
}

func (s *Store) info(key string, o object) boxgate.ObjectInfo {
	return boxgate.ObjectInfo{
		Key:          key,
		Size:         int64(len(o.data)),
		ContentType:  o.contentType,
		ETag:         o.etag,
		LastModified: o.lastModified,
	}
}

func (s *Store) Put(ctx context.Context, key string, body io.Reader, opts boxgate.PutOptions) (boxgate.ObjectInfo, error) {
	if key == "" {
		return boxgate.ObjectInfo{}, fmt.Errorf("put: %w: empty key", boxgate.ErrInvalidInput)
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return boxgate.ObjectInfo{}, fmt.Errorf("put %s: read body: %w", key, err)
	}
	if err := ctx.Err(); err != nil {
		return boxgate.ObjectInfo{}, fmt.Errorf("put %s: %w", key, err)
	}

	contentType := opts.ContentType
	if contentType == "" {
		contentType = boxgate.DefaultContentType
	}
	sum := md5.Sum(data)
	o := object{
		data:         data,
		contentType:  contentType,
		etag:         `"` + hex.EncodeToString(sum[:]) + `"`,
		lastModified: s.now().UTC().Truncate(time.Second),
	}

	s.mu.Lock()
	s.objects[key] = o
	s.mu.Unlock()

	return s.info(key, o), nil
}

func (s *Store) Head(ctx context.Context, key string) (boxgate.ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return boxgate.ObjectInfo{}, fmt.Errorf("head %s: %w", key, err)
	}

	s.mu.RLock()
	o, ok := s.objects[key]
	s.mu.RUnlock()
	if !ok {
		return boxgate.ObjectInfo{}, fmt.Errorf("head %s: %w", key, boxgate.ErrNotFound)
	}
	return s.info(key, o), nil
}

func (s *Store) Get(ctx context.Context, key string, rng *boxgate.ByteRange) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}

	s.mu.RLock()
	o, ok := s.objects[key]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("get %s: %w", key, boxgate.ErrNotFound)
	}

	data := o.data
	if rng != nil {
		if rng.Start < 0 || rng.End < rng.Start || rng.End >= int64(len(data)) {
			return nil, fmt.Errorf("get %s: %w: range %d-%d outside object", key, boxgate.ErrInvalidInput, rng.Start, rng.End)
		}
		data = data[rng.Start : rng.End+1]
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *Store) List(ctx context.Context, q boxgate.ListQuery) (boxgate.ListPage, error) {
	if err := ctx.Err(); err != nil {
		return boxgate.ListPage{}, fmt.Errorf("list: %w", err)
	}

	s.mu.RLock()
	keys := make([]string, 0, len(s.objects))
	for k := range s.objects {
		if strings.HasPrefix(k, q.Prefix) && k > q.Cursor {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	limit := q.Limit
	if limit <= 0 || limit > len(keys) {
		limit = len(keys)
	}

	page := boxgate.ListPage{Objects: make([]boxgate.ObjectInfo, 0, limit)}
	for _, k := range keys[:limit] {
		page.Objects = append(page.Objects, s.info(k, s.objects[k]))
	}
	s.mu.RUnlock()

	if limit < len(keys) {
		page.NextCursor = keys[limit-1]
	}
	return page, nil
}

func (s *Store) Delete(ctx context.Context, keys ...string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("delete: %w", err)
	}

	s.mu.Lock()
	for _, k := range keys {
		delete(s.objects, k)
	}
	s.mu.Unlock()
	return nil
}

// Len returns the number of stored objects.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
