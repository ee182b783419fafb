package textutil

import "strings"

// FileToken converts a file stem into a filesystem-safe identifier. ASCII
// letters keep their case; digits, hyphens and underscores are kept;
// everything else becomes an underscore. Returns "" when nothing usable
// remains.
func FileToken(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	var b strings.Builder
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return strings.Trim(b.String(), "_-")
}
