package textutil

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Normalize trims whitespace and lowercases s. Normalize(Normalize(s)) == Normalize(s).
func Normalize(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	// Casers carry state and are not safe for concurrent use.
	return strings.TrimSpace(cases.Lower(language.Und).String(s))
}

// StripExtension removes a trailing ".ext" from s. Names without an extension,
// dotfiles, and names ending in a dot are returned unchanged.
func StripExtension(s string) string {
	idx := strings.LastIndexByte(s, '.')
	if idx <= 0 || idx == len(s)-1 {
		return s
	}
	if strings.ContainsAny(s[idx+1:], `/\ `) {
		return s
	}
	return s[:idx]
}

// Extension returns the lowercased extension of name without the dot.
func Extension(name string) string {
	base := BaseName(name)
	idx := strings.LastIndexByte(base, '.')
	if idx < 0 || idx == len(base)-1 {
		return ""
	}
	return strings.ToLower(base[idx+1:])
}

// BaseName returns the final path element of name, treating both forward and
// backward slashes as separators since archive tools disagree on them.
func BaseName(name string) string {
	if idx := strings.LastIndexAny(name, `/\`); idx >= 0 {
		return name[idx+1:]
	}
	return name
}
