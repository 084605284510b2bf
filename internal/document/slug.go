package document

import (
	"regexp"
	"strings"
)

// slugPattern matches a string of lowercase ASCII letters, digits and
// hyphens with no leading or trailing hyphen — the shared lexical
// constraint on room-id and user-id (§3).
var slugPattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?$`)

func isValidSlug(s string) bool {
	return slugPattern.MatchString(s)
}

// KebabCase derives a candidate room-id from a room's display name
// (§4.5 phase 6): lowercase, non-alphanumeric runs collapsed to a
// single hyphen, leading/trailing hyphens trimmed.
func KebabCase(name string) string {
	var b strings.Builder
	lastHyphen := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen && b.Len() > 0 {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}
