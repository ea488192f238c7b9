package boxgate

import (
	"fmt"
	"strconv"
	"strings"
)

// ByteRange is an inclusive byte interval [Start, End].
type ByteRange struct {
	Start int64
	End   int64
}

// Length returns the number of bytes covered by the range.
func (r ByteRange) Length() int64 {
	return r.End - r.Start + 1
}

// ContentRange renders the Content-Range header value for an object of size bytes.
func (r ByteRange) ContentRange(size int64) string {
	return fmt.Sprintf("bytes %d-%d/%d", r.Start, r.End, size)
}

// ParseRange resolves a Range header against an object of size bytes. Only a
// single "bytes=" range is honored; anything unsatisfiable or malformed
// reports false and the caller serves the whole object.
func ParseRange(header string, size int64) (ByteRange, bool) {
	header = strings.TrimSpace(header)
	if header == "" || size <= 0 {
		return ByteRange{}, false
	}
	spec, ok := strings.CutPrefix(header, "bytes=")
	if !ok || strings.Contains(spec, ",") {
		return ByteRange{}, false
	}
	startStr, endStr, ok := strings.Cut(spec, "-")
	if !ok {
		return ByteRange{}, false
	}
	startStr = strings.TrimSpace(startStr)
	endStr = strings.TrimSpace(endStr)

	if startStr == "" {
		n, err := strconv.ParseInt(endStr, 10, 64)
		if err != nil || n <= 0 {
			return ByteRange{}, false
		}
		if n >= size {
			return ByteRange{Start: 0, End: size - 1}, true
		}
		return ByteRange{Start: size - n, End: size - 1}, true
	}

	start, err := strconv.ParseInt(startStr, 10, 64)
	if err != nil || start < 0 || start >= size {
		return ByteRange{}, false
	}
	if endStr == "" {
		return ByteRange{Start: start, End: size - 1}, true
	}

	end, err := strconv.ParseInt(endStr, 10, 64)
	if err != nil || end < start {
		return ByteRange{}, false
	}
	if end >= size {
		end = size - 1
	}
	return ByteRange{Start: start, End: end}, true
}
