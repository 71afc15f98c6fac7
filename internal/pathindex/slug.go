package pathindex

import (
	"regexp"
	"strings"
)

var (
	slugDisallowed = regexp.MustCompile(`[^\p{L}\p{N}\p{Z}\s-]`)
	slugSeparators = regexp.MustCompile(`[-\p{Z}\s]+`)
)

// Slug converts text into a lowercase, hyphen separated path segment.
// Empty results become "untitled".
func Slug(text string) string {
	s := strings.ToLower(strings.TrimSpace(text))
	s = slugDisallowed.ReplaceAllString(s, "")
	s = slugSeparators.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if s == "" {
		return "untitled"
	}
	return s
}
