// Package filesystem provides a local directory ObjectStore.
// Writes are atomic (temp file plus rename), etags derive from modification
// time and size, and content types are detected from file extensions.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/sagarc03/boxgate"
)

// tmpDir holds in-flight uploads. It is never listed.
const tmpDir = ".tmp"

// Store keeps each object in a file named by its key below root.
type Store struct {
	root *os.Root
}

// New creates a Store on an already opened root. The root sandboxes every
// file operation, preventing path traversal.
func New(root *os.Root) *Store {
	return &Store{root: root}
}

// Open creates dir if needed and returns a Store rooted there.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("open filesystem store: %w", err)
	}
	root, err := os.OpenRoot(dir)
	if err != nil {
		return nil, fmt.Errorf("open filesystem store: %w", err)
	}
	return New(root), nil
}

// Close releases the underlying root.
func (s *Store) Close() error {
	return s.root.Close()
}

// validKey rejects keys the filesystem cannot represent as a plain file path.
func validKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || strings.HasSuffix(key, "/") {
		return fmt.Errorf("%w: key %q", boxgate.ErrInvalidInput, key)
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == "" || seg == "." || seg == ".." || seg == tmpDir {
			return fmt.Errorf("%w: key %q", boxgate.ErrInvalidInput, key)
		}
	}
	return nil
}

func etagFor(info fs.FileInfo) string {
	return `"` + strconv.FormatInt(info.ModTime().UnixNano(), 16) + "-" + strconv.FormatInt(info.Size(), 16) + `"`
}

func objectInfo(key string, info fs.FileInfo) boxgate.ObjectInfo {
	return boxgate.ObjectInfo{
		Key:          key,
		Size:         info.Size(),
		ContentType:  boxgate.DetectContentType(key),
		ETag:         etagFor(info),
		LastModified: info.ModTime().UTC(),
	}
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (r *ctxReader) Read(p []byte) (n int, err error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	return r.r.Read(p)
}

// Put atomically writes body to key using a temp file and rename, creating
// intermediate directories as needed. opts.ContentType is not persisted; the
// type is always derived from the key's extension.
func (s *Store) Put(ctx context.Context, key string, body io.Reader, _ boxgate.PutOptions) (boxgate.ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return boxgate.ObjectInfo{}, err
	}
	if err := validKey(key); err != nil {
		return boxgate.ObjectInfo{}, fmt.Errorf("put: %w", err)
	}

	if err := s.root.MkdirAll(tmpDir, 0o755); err != nil {
		return boxgate.ObjectInfo{}, fmt.Errorf("put %s: create temp dir: %w", key, err)
	}

	tmpFile := tmpFileName()
	t, err := s.root.Create(tmpFile)
	if err != nil {
		return boxgate.ObjectInfo{}, fmt.Errorf("put %s: open temp file: %w", key, err)
	}

	success := false
	defer func() {
		if closeErr := t.Close(); closeErr != nil && !errors.Is(closeErr, os.ErrClosed) {
			slog.Warn("failed to close tmp file", "err", closeErr)
		}
		if !success {
			if rmErr := s.root.Remove(tmpFile); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
				slog.Warn("failed to remove tmp file", "err", rmErr)
			}
		}
	}()

	if _, err := io.Copy(t, &ctxReader{ctx: ctx, r: body}); err != nil {
		return boxgate.ObjectInfo{}, fmt.Errorf("put %s: copy contents: %w", key, err)
	}
	if err := t.Sync(); err != nil {
		return boxgate.ObjectInfo{}, fmt.Errorf("put %s: sync: %w", key, err)
	}

	if dir := path.Dir(key); dir != "." {
		if err := s.root.MkdirAll(dir, 0o755); err != nil {
			return boxgate.ObjectInfo{}, fmt.Errorf("put %s: create directories: %w", key, err)
		}
	}

	if err := s.root.Rename(tmpFile, key); err != nil {
		return boxgate.ObjectInfo{}, fmt.Errorf("put %s: rename: %w", key, err)
	}
	success = true

	info, err := s.root.Stat(key)
	if err != nil {
		return boxgate.ObjectInfo{}, fmt.Errorf("put %s: stat: %w", key, err)
	}
	return objectInfo(key, info), nil
}

func (s *Store) Head(ctx context.Context, key string) (boxgate.ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return boxgate.ObjectInfo{}, err
	}
	if err := validKey(key); err != nil {
		return boxgate.ObjectInfo{}, fmt.Errorf("head %s: %w", key, boxgate.ErrNotFound)
	}

	info, err := s.root.Stat(key)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return boxgate.ObjectInfo{}, fmt.Errorf("head %s: %w", key, boxgate.ErrNotFound)
		}
		return boxgate.ObjectInfo{}, fmt.Errorf("head %s: %w", key, err)
	}
	if info.IsDir() {
		return boxgate.ObjectInfo{}, fmt.Errorf("head %s: %w", key, boxgate.ErrNotFound)
	}
	return objectInfo(key, info), nil
}

type rangeReader struct {
	io.Reader
	f *os.File
}

func (r *rangeReader) Close() error {
	return r.f.Close()
}

// Get opens key for reading, positioned and limited to rng when set.
func (s *Store) Get(ctx context.Context, key string, rng *boxgate.ByteRange) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validKey(key); err != nil {
		return nil, fmt.Errorf("get %s: %w", key, boxgate.ErrNotFound)
	}

	f, err := s.root.Open(key)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("get %s: %w", key, boxgate.ErrNotFound)
		}
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	if rng == nil {
		return f, nil
	}

	info, err := f.Stat()
	if err == nil && (rng.Start < 0 || rng.End < rng.Start || rng.End >= info.Size()) {
		err = fmt.Errorf("%w: range %d-%d outside object", boxgate.ErrInvalidInput, rng.Start, rng.End)
	}
	if err == nil {
		_, err = f.Seek(rng.Start, io.SeekStart)
	}
	if err != nil {
		if closeErr := f.Close(); closeErr != nil {
			slog.Warn("failed to close file", "key", key, "err", closeErr)
		}
		return nil, fmt.Errorf("get %s: %w", key, err)
	}

	return &rangeReader{Reader: io.LimitReader(f, rng.Length()), f: f}, nil
}

// walkDir returns the directory to walk for prefix; keys outside it cannot
// match.
func walkDir(prefix string) string {
	if i := strings.LastIndex(prefix, "/"); i > 0 {
		return prefix[:i]
	}
	return "."
}

// List walks the directory holding prefix and returns keys after q.Cursor in
// ascending order.
func (s *Store) List(ctx context.Context, q boxgate.ListQuery) (boxgate.ListPage, error) {
	if err := ctx.Err(); err != nil {
		return boxgate.ListPage{}, err
	}

	type entry struct {
		key  string
		info fs.FileInfo
	}
	var entries []entry

	start := walkDir(q.Prefix)
	err := fs.WalkDir(s.root.FS(), start, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == start && errors.Is(err, fs.ErrNotExist) {
				return fs.SkipAll
			}
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if p == tmpDir {
				return fs.SkipDir
			}
			return nil
		}
		if !strings.HasPrefix(p, q.Prefix) || p <= q.Cursor {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		entries = append(entries, entry{key: p, info: info})
		return nil
	})
	if err != nil {
		return boxgate.ListPage{}, fmt.Errorf("list %s: %w", q.Prefix, err)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].key < entries[j].key })

	limit := q.Limit
	if limit <= 0 || limit > len(entries) {
		limit = len(entries)
	}

	page := boxgate.ListPage{Objects: make([]boxgate.ObjectInfo, 0, limit)}
	for _, e := range entries[:limit] {
		page.Objects = append(page.Objects, objectInfo(e.key, e.info))
	}
	if limit < len(entries) {
		page.NextCursor = entries[limit-1].key
	}
	return page, nil
}

// Delete removes each key. Missing and unrepresentable keys are skipped.
func (s *Store) Delete(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return err
		}
		if validKey(key) != nil {
			continue
		}
		if err := s.root.Remove(key); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("delete %s: %w", key, err)
		}
	}
	return nil
}

func tmpFileName() string {
	return path.Join(tmpDir, ".t"+uuid.New().String())
}
