package boxgate

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

const (
	// MaxFilenameLength caps a normalized name, in runes.
	MaxFilenameLength = 180

	// FallbackFilename replaces names that normalize to nothing.
	FallbackFilename = "file"
)

// legacyASCIIExtra lists the non-alphanumeric characters kept by the
// ASCII-safe rule that older uploads were stored under.
const legacyASCIIExtra = "_.- ()[]{}@+=,;!~'`"

func isSpecialSpace(r rune) bool {
	switch r {
	case '\u00a0', '\u202f', '\u2007':
		return true
	default:
		return false
	}
}

func isControl(r rune) bool {
	return r <= 0x1f || r == 0x7f
}

// baseSegment keeps only the final path segment of name.
func baseSegment(name string) string {
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		return name[i+1:]
	}
	return name
}

func composeNFC(s string) string {
	if !utf8.ValidString(s) {
		return s
	}
	return norm.NFC.String(s)
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

// finish trims, truncates and substitutes the fallback name. Dot segments
// are not storable on every backend and take the fallback too.
func finish(s string) string {
	s = truncateRunes(strings.TrimSpace(s), MaxFilenameLength)
	if s == "" || s == "." || s == ".." {
		return FallbackFilename
	}
	return s
}

func replaceSpecialSpaces(s string, with rune) string {
	return strings.Map(func(r rune) rune {
		if isSpecialSpace(r) {
			return with
		}
		return r
	}, s)
}

func stripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if isControl(r) {
			return -1
		}
		return r
	}, s)
}

// NormalizeFilename maps an untrusted client-supplied name to the canonical
// key fragment used for every new write.
func NormalizeFilename(name string) string {
	return finish(replaceSpecialSpaces(cleanSegment(name), ' '))
}

// cleanSegment is the NFC form of the final path segment with control
// characters removed. Every candidate starts from it.
func cleanSegment(name string) string {
	return stripControl(composeNFC(baseSegment(name)))
}

// legacyASCII applies the ASCII-safe rule to the canonical form of name.
func legacyASCII(name string) string {
	s := strings.Map(func(r rune) rune {
		if r > unicode.MaxASCII {
			return '_'
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) || strings.ContainsRune(legacyASCIIExtra, r) {
			return r
		}
		return '_'
	}, NormalizeFilename(name))
	s = truncateRunes(s, MaxFilenameLength)
	if s == "" {
		return FallbackFilename
	}
	return s
}

func specialAsUnderscore(name string) string {
	return finish(replaceSpecialSpaces(cleanSegment(name), '_'))
}

type candidateStrategy struct {
	tag  string
	name func(string) string
}

// candidateStrategies is the fixed lookup order. The canonical rule always
// comes first; the rest reproduce keys written by earlier rules from the
// same cleaned segment.
var candidateStrategies = []candidateStrategy{
	{tag: "canonical", name: NormalizeFilename},
	{tag: "legacy-ascii", name: legacyASCII},
	{tag: "special-underscore", name: specialAsUnderscore},
	{tag: "special-space", name: NormalizeFilename},
}

// FilenameCandidates returns the deduplicated key fragments under which an
// object named name may be stored, in lookup order.
func FilenameCandidates(name string) []string {
	seen := make(map[string]struct{}, len(candidateStrategies))
	out := make([]string, 0, len(candidateStrategies))
	for _, s := range candidateStrategies {
		c := s.name(name)
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}
