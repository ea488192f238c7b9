package boxgate

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"
)

// DefaultContentType is reported for objects whose type is unknown.
const DefaultContentType = "application/octet-stream"

// ObjectInfo describes a stored object as reported by the backend.
type ObjectInfo struct {
	Key          string
	Size         int64
	ContentType  string
	ETag         string
	LastModified time.Time
}

// PutOptions carries optional attributes for a write.
type PutOptions struct {
	ContentType string
	// Size is the body length when known, -1 otherwise.
	Size int64
}

// ListQuery selects one page of a prefix listing.
type ListQuery struct {
	Prefix string
	Cursor string
	Limit  int
}

// ListPage is one page of a prefix listing. An empty NextCursor means the
// listing is exhausted.
type ListPage struct {
	Objects    []ObjectInfo
	NextCursor string
}

// BoxEntry is one element of a box listing, with the box prefix stripped.
type BoxEntry struct {
	Name         string    `json:"name"`
	Size         int64     `json:"size"`
	ETag         string    `json:"etag"`
	LastModified time.Time `json:"lastModified"`
}

// RedirectEntry maps a symbolic key to a destination URL.
type RedirectEntry struct {
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ValidateRedirectTarget accepts only absolute http and https URLs.
func ValidateRedirectTarget(target string) error {
	lower := strings.ToLower(strings.TrimSpace(target))
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		return fmt.Errorf("validate redirect target %q: %w: must start with http:// or https://", target, ErrInvalidInput)
	}
	return nil
}

// ValidateRedirectKey rejects keys the redirect route could never match.
func ValidateRedirectKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") {
		return fmt.Errorf("validate redirect key %q: %w: must be non-empty without a leading slash", key, ErrInvalidInput)
	}
	if strings.ContainsFunc(key, unicode.IsControl) {
		return fmt.Errorf("validate redirect key %q: %w: control characters not allowed", key, ErrInvalidInput)
	}
	return nil
}

// Tables holds configurable table names for the SQL backends.
type Tables struct {
	Redirects   string `mapstructure:"redirects"`
	RateBuckets string `mapstructure:"rate_buckets"`
}

var validTableNameRegex = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// IsValidTableName checks if a table name is valid (lowercase, alphanumeric with underscores, max 63 chars).
func IsValidTableName(name string) bool {
	return validTableNameRegex.MatchString(name) && len(name) <= 63
}

// Validate checks that all required table names are set and valid.
func (t Tables) Validate() error {
	if t.Redirects == "" {
		return errors.New("validate tables: redirects table name cannot be empty")
	}
	if t.RateBuckets == "" {
		return errors.New("validate tables: rate buckets table name cannot be empty")
	}

	for _, name := range []string{t.Redirects, t.RateBuckets} {
		if !IsValidTableName(name) {
			return fmt.Errorf("validate tables: invalid table name: %s (must match ^[a-z_][a-z0-9_]*$ and be <= 63 chars)", name)
		}
	}

	if t.Redirects == t.RateBuckets {
		return fmt.Errorf("validate tables: redirects and rate buckets share table %s", t.Redirects)
	}

	return nil
}
