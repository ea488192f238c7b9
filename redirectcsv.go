package boxgate

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ParseRedirectCSV reads redirect entries from CSV. The first row is a header
// naming a "url" column and either a "key" or an "id" column. An id is the
// box number and becomes the key "box-NN". Rows with an empty url are
// skipped; any other invalid row fails the whole read.
func ParseRedirectCSV(r io.Reader) ([]RedirectEntry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("parse redirect csv: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}

	urlCol, ok := cols["url"]
	if !ok {
		return nil, fmt.Errorf("parse redirect csv: %w: missing url column", ErrInvalidInput)
	}
	keyCol, byKey := cols["key"]
	idCol, byID := cols["id"]
	if !byKey && !byID {
		return nil, fmt.Errorf("parse redirect csv: %w: missing key or id column", ErrInvalidInput)
	}

	var entries []RedirectEntry
	for line := 2; ; line++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse redirect csv: %w", err)
		}
		if len(record) == 1 && strings.TrimSpace(record[0]) == "" {
			continue
		}

		target := field(record, urlCol)
		if target == "" {
			continue
		}

		var key string
		if byKey {
			key = field(record, keyCol)
		} else {
			key = boxKey(field(record, idCol))
		}

		if err := ValidateRedirectKey(key); err != nil {
			return nil, fmt.Errorf("parse redirect csv: line %d: %w", line, err)
		}
		if err := ValidateRedirectTarget(target); err != nil {
			return nil, fmt.Errorf("parse redirect csv: line %d: %w", line, err)
		}
		entries = append(entries, RedirectEntry{Key: key, URL: target})
	}
	return entries, nil
}

func field(record []string, i int) string {
	if i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

// boxKey turns a box number into its redirect key. Ids shorter than two
// digits are zero padded.
func boxKey(id string) string {
	if id == "" {
		return ""
	}
	if len(id) < 2 {
		id = strings.Repeat("0", 2-len(id)) + id
	}
	return "box-" + id
}
