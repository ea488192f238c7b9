package boxgate

import (
	"fmt"
	"regexp"
	"strings"
)

var boxSegmentRegex = regexp.MustCompile(`^(?i:box)-([0-9]{2})$`)

// Box identifies a logical container. Its objects live under "<id>/".
type Box string

// ParseBox extracts the two-digit id from a "box-NN" path segment.
func ParseBox(segment string) (Box, error) {
	m := boxSegmentRegex.FindStringSubmatch(segment)
	if m == nil {
		return "", fmt.Errorf("parse box %q: %w", segment, ErrInvalidBox)
	}
	return Box(m[1]), nil
}

// Prefix returns the storage key prefix shared by every object in the box.
func (b Box) Prefix() string {
	return string(b) + "/"
}

// Key returns the storage key of name inside the box.
func (b Box) Key(name string) string {
	return b.Prefix() + name
}

// Name strips the box prefix from a storage key.
func (b Box) Name(key string) string {
	return strings.TrimPrefix(key, b.Prefix())
}

func (b Box) String() string {
	return "box-" + string(b)
}
