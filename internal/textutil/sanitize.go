package textutil

import (
	"path/filepath"
	"strings"
)

// MaxFileNameLength is the library's hard cap on a single path component.
const MaxFileNameLength = 255

func safeRune(r rune) bool {
	switch {
	case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9':
		return true
	case r == ' ', r == '-', r == '_', r == '(', r == ')', r == '[', r == ']':
		return true
	}
	return false
}

// SanitizeFileName restricts a filename component to the library character set
// (letters, digits, space, hyphen, underscore, parentheses, brackets). Any
// other character becomes an underscore, consecutive spaces collapse to one,
// and leading/trailing whitespace is trimmed.
func SanitizeFileName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		if safeRune(r) {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	out := b.String()
	for strings.Contains(out, "  ") {
		out = strings.ReplaceAll(out, "  ", " ")
	}
	return strings.TrimSpace(out)
}

// SanitizePathSegments sanitizes each path component independently, preserving
// the separator structure. Empty segments are dropped.
func SanitizePathSegments(path string) string {
	segments := strings.Split(filepath.ToSlash(path), "/")
	cleaned := make([]string, 0, len(segments))
	for _, seg := range segments {
		if s := SanitizeFileName(seg); s != "" {
			cleaned = append(cleaned, s)
		}
	}
	return filepath.Join(cleaned...)
}

// TruncateFileName enforces the filename cap by trimming the variable part
// first. The fixed part (structural fields plus extension) is never trimmed;
// if fixed alone exceeds the cap the whole name is hard-truncated.
func TruncateFileName(fixedPrefix, variable, fixedSuffix string) string {
	name := fixedPrefix + variable + fixedSuffix
	if len(name) <= MaxFileNameLength {
		return name
	}
	budget := MaxFileNameLength - len(fixedPrefix) - len(fixedSuffix)
	if budget < 0 {
		budget = 0
	}
	if len(variable) > budget {
		variable = strings.TrimSpace(variable[:budget])
	}
	name = fixedPrefix + variable + fixedSuffix
	if len(name) > MaxFileNameLength {
		name = name[:MaxFileNameLength]
	}
	return name
}
