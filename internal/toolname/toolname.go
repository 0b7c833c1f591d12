package toolname

import "strings"

// Normalize cleans a single raw line from a role file into a package name.
// It trims surrounding whitespace, strips at most one trailing comma and then
// strips one layer of matching single or double quotes. Mismatched quotes are
// left in place. An empty result means the line carried no package name and
// must be dropped by the caller.
func Normalize(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimSpace(strings.TrimSuffix(s, ","))

	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if first == last && (first == '\'' || first == '"') {
			s = s[1 : len(s)-1]
		}
	}

	return s
}
