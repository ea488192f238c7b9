package boxgate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"path/filepath"
	"strings"
	"time"
)

// ObjectStore is the contract the gateway needs from the backing storage.
// Implementations must be safe for concurrent use.
type ObjectStore interface {
	// Put stores body under key, replacing any existing object.
	Put(ctx context.Context, key string, body io.Reader, opts PutOptions) (ObjectInfo, error)

	// Head returns object metadata, or ErrNotFound.
	Head(ctx context.Context, key string) (ObjectInfo, error)

	// Get opens the object for reading. A nil rng reads the whole object;
	// otherwise exactly rng.Length() bytes starting at rng.Start are returned.
	// The caller closes the reader.
	Get(ctx context.Context, key string, rng *ByteRange) (io.ReadCloser, error)

	// List returns one page of objects whose key starts with q.Prefix, in
	// ascending key order.
	List(ctx context.Context, q ListQuery) (ListPage, error)

	// Delete removes the given keys. Missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error
}

// RedirectRepo persists redirect entries. The gateway only calls Lookup;
// the remaining methods serve the admin commands.
type RedirectRepo interface {
	// Lookup returns the destination URL for key, or ErrNotFound.
	Lookup(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, url string) (RedirectEntry, error)
	// Delete removes key, returning ErrNotFound when it does not exist.
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) ([]RedirectEntry, error)
}

// CounterStore holds expiring integer counters shared by all requests.
// Implementations must be safe for concurrent use.
type CounterStore interface {
	// Increment adds delta to key and returns the new value. A missing or
	// expired counter starts from zero and expires after ttl.
	Increment(ctx context.Context, key string, delta int64, ttl time.Duration) (int64, error)

	// Get returns the current value of key, or zero when missing or expired.
	Get(ctx context.Context, key string) (int64, error)

	// Sweep drops expired counters and reports how many were removed.
	Sweep(ctx context.Context) (int, error)
}

// ServiceConfig holds tuning options for GatewayService.
type ServiceConfig struct {
	ListPageSize    int // keys requested per backend page (default: 1000)
	MaxListPages    int // safety cap on pages per listing (default: 100)
	DeleteBatchSize int // keys per backend delete call (default: 1000)
}

// Object is a resolved stored object ready to be streamed.
type Object struct {
	Name  string
	Info  ObjectInfo
	Range *ByteRange
	Body  io.ReadCloser
}

// GatewayService implements the box and redirect operations on top of an
// ObjectStore and a RedirectRepo.
type GatewayService struct {
	store     ObjectStore
	redirects RedirectRepo
	cfg       ServiceConfig
}

func NewGatewayService(store ObjectStore, redirects RedirectRepo, cfg ServiceConfig) (*GatewayService, error) {
	if store == nil {
		return nil, errors.New("new gateway service: object store is required")
	}
	if cfg.ListPageSize <= 0 {
		cfg.ListPageSize = 1000
	}
	if cfg.MaxListPages <= 0 {
		cfg.MaxListPages = 100
	}
	if cfg.DeleteBatchSize <= 0 {
		cfg.DeleteBatchSize = 1000
	}
	return &GatewayService{
		store:     store,
		redirects: redirects,
		cfg:       cfg,
	}, nil
}

// listAll pages through every object under prefix. Results are deduplicated
// by key. A failure on any page discards everything collected so far.
func (s *GatewayService) listAll(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	seen := make(map[string]struct{})
	var objects []ObjectInfo
	cursor := ""

	for page := 0; ; page++ {
		if page == s.cfg.MaxListPages {
			slog.Warn("listing stopped at page cap", "prefix", prefix, "pages", page, "objects", len(objects))
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		result, err := s.store.List(ctx, ListQuery{Prefix: prefix, Cursor: cursor, Limit: s.cfg.ListPageSize})
		if err != nil {
			return nil, err
		}

		for _, o := range result.Objects {
			if _, dup := seen[o.Key]; dup {
				continue
			}
			seen[o.Key] = struct{}{}
			objects = append(objects, o)
		}

		if result.NextCursor == "" || result.NextCursor == cursor {
			break
		}
		cursor = result.NextCursor
	}

	return objects, nil
}

// List returns every object stored in box.
func (s *GatewayService) List(ctx context.Context, box Box) ([]BoxEntry, error) {
	objects, err := s.listAll(ctx, box.Prefix())
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", box, err)
	}

	entries := make([]BoxEntry, 0, len(objects))
	for _, o := range objects {
		entries = append(entries, BoxEntry{
			Name:         box.Name(o.Key),
			Size:         o.Size,
			ETag:         o.ETag,
			LastModified: o.LastModified,
		})
	}
	return entries, nil
}

// Upload stores body in box under the canonical form of name, overwriting
// whatever was stored at that exact key.
func (s *GatewayService) Upload(ctx context.Context, box Box, name, contentType string, body io.Reader) (ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return ObjectInfo{}, fmt.Errorf("upload: %w", err)
	}

	canonical := NormalizeFilename(name)
	if contentType == "" {
		contentType = DetectContentType(canonical)
	}

	info, err := s.store.Put(ctx, box.Key(canonical), body, PutOptions{ContentType: contentType, Size: -1})
	if err != nil {
		return ObjectInfo{}, fmt.Errorf("upload %s/%s: %w", box, canonical, err)
	}
	return info, nil
}

// DeleteAll removes every object in box and returns how many were deleted.
// Objects uploaded while the listing runs may or may not be included.
func (s *GatewayService) DeleteAll(ctx context.Context, box Box) (int, error) {
	objects, err := s.listAll(ctx, box.Prefix())
	if err != nil {
		return 0, fmt.Errorf("delete all %s: %w", box, err)
	}

	deleted := 0
	for start := 0; start < len(objects); start += s.cfg.DeleteBatchSize {
		end := min(start+s.cfg.DeleteBatchSize, len(objects))
		keys := make([]string, 0, end-start)
		for _, o := range objects[start:end] {
			keys = append(keys, o.Key)
		}
		if err := s.store.Delete(ctx, keys...); err != nil {
			return deleted, fmt.Errorf("delete all %s: %w", box, err)
		}
		deleted += len(keys)
	}

	return deleted, nil
}

// candidateKeys returns the storage keys name may live under, in lookup order.
func candidateKeys(box Box, name string) []string {
	fragments := FilenameCandidates(name)
	keys := make([]string, len(fragments))
	for i, f := range fragments {
		keys[i] = box.Key(f)
	}
	return keys
}

// DeleteOne removes name from box under every key an earlier normalization
// rule could have produced. Deleting a missing object succeeds.
func (s *GatewayService) DeleteOne(ctx context.Context, box Box, name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("delete %s: %w", box, ErrMissingName)
	}

	if err := s.store.Delete(ctx, candidateKeys(box, name)...); err != nil {
		return fmt.Errorf("delete %s/%s: %w", box, name, err)
	}
	return nil
}

// Resolve returns metadata of the first candidate key that exists. A blank
// name never resolves to the fallback key.
func (s *GatewayService) Resolve(ctx context.Context, box Box, name string) (ObjectInfo, error) {
	if strings.TrimSpace(name) == "" {
		return ObjectInfo{}, fmt.Errorf("resolve %s: %w", box, ErrMissingName)
	}
	for _, key := range candidateKeys(box, name) {
		info, err := s.store.Head(ctx, key)
		if err == nil {
			return info, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return ObjectInfo{}, fmt.Errorf("resolve %s: %w", key, err)
		}
	}
	return ObjectInfo{}, fmt.Errorf("resolve %s/%s: %w", box, name, ErrNotFound)
}

// Stat resolves name and applies rangeHeader without opening the body.
func (s *GatewayService) Stat(ctx context.Context, box Box, name, rangeHeader string) (Object, error) {
	if err := ctx.Err(); err != nil {
		return Object{}, fmt.Errorf("stat: %w", err)
	}

	info, err := s.Resolve(ctx, box, name)
	if err != nil {
		return Object{}, err
	}
	if info.ContentType == "" {
		info.ContentType = DetectContentType(info.Key)
	}

	obj := Object{Name: box.Name(info.Key), Info: info}
	if rng, ok := ParseRange(rangeHeader, info.Size); ok {
		obj.Range = &rng
	}
	return obj, nil
}

// Open is Stat followed by reading the selected bytes. The caller closes Body.
func (s *GatewayService) Open(ctx context.Context, box Box, name, rangeHeader string) (Object, error) {
	obj, err := s.Stat(ctx, box, name, rangeHeader)
	if err != nil {
		return Object{}, err
	}

	body, err := s.store.Get(ctx, obj.Info.Key, obj.Range)
	if err != nil {
		return Object{}, fmt.Errorf("open %s: %w", obj.Info.Key, err)
	}
	obj.Body = body
	return obj, nil
}

// Redirect returns the destination stored for key.
func (s *GatewayService) Redirect(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("redirect: %w: key cannot be empty", ErrInvalidInput)
	}
	if s.redirects == nil {
		return "", fmt.Errorf("redirect %s: %w", key, ErrNotFound)
	}

	target, err := s.redirects.Lookup(ctx, key)
	if err != nil {
		return "", fmt.Errorf("redirect %s: %w", key, err)
	}
	if err := ValidateRedirectTarget(target); err != nil {
		slog.Warn("stored redirect target rejected", "key", key, "err", err)
		return "", fmt.Errorf("redirect %s: %w", key, ErrNotFound)
	}
	return target, nil
}

// RedirectExists reports whether key has a usable destination.
func (s *GatewayService) RedirectExists(ctx context.Context, key string) (bool, error) {
	_, err := s.Redirect(ctx, key)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidInput) {
		return false, nil
	}
	return false, err
}

// mediaTypes covers the formats boxes usually hold. The system MIME table
// is consulted for anything else and varies between hosts.
var mediaTypes = map[string]string{
	".mp4":  "video/mp4",
	".m4v":  "video/x-m4v",
	".mov":  "video/quicktime",
	".webm": "video/webm",
	".mp3":  "audio/mpeg",
	".m4a":  "audio/mp4",
	".wav":  "audio/wav",
	".ogg":  "audio/ogg",
	".heic": "image/heic",
}

// DetectContentType guesses a MIME type from the file extension.
func DetectContentType(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ct, ok := mediaTypes[ext]; ok {
		return ct
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return DefaultContentType
}
