package utils

import "strings"

// SanitizeFilename keeps [A-Za-z0-9._-] and replaces every other character
// with an underscore, so the result is safe as a storage key segment.
func SanitizeFilename(name string) string {
	if name == "" {
		return "file"
	}
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
