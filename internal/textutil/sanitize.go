package textutil

import (
	"strings"
	"unicode"
)

// PathSegment cleans one segment of an object key prefix. Separators and
// colons become dashes, characters that S3 and common filesystems reject are
// dropped, and interior spaces are kept.
func PathSegment(name string) string {
	mapped := strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == '\\' || r == ':' || r == '*':
			return '-'
		case r == '?' || r == '"' || r == '<' || r == '>' || r == '|' || r == '#' || r == '%':
			return -1
		case unicode.IsControl(r):
			return -1
		}
		return r
	}, strings.TrimSpace(name))
	return strings.TrimSpace(mapped)
}

// KeyToken reduces value to lowercase ASCII letters, digits, '-' and '_'.
// Any other run of characters collapses to a single underscore, and the
// result never starts or ends with a separator. Empty results become
// "unknown" so keys always have a usable stem.
func KeyToken(value string) string {
	var b strings.Builder
	b.Grow(len(value))
	pendingSep := false
	for _, r := range strings.ToLower(strings.TrimSpace(value)) {
		keep := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' || r == '_'
		if !keep {
			pendingSep = true
			continue
		}
		if pendingSep && b.Len() > 0 {
			b.WriteByte('_')
		}
		pendingSep = false
		b.WriteRune(r)
	}
	out := strings.Trim(b.String(), "_-")
	if out == "" {
		return "unknown"
	}
	return out
}
