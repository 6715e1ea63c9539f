package evidence

import (
	"regexp"
	"strings"
)

// sentenceBoundary splits on a period followed by whitespace.
var sentenceBoundary = regexp.MustCompile(`\.\s+`)

// SplitAssertions breaks scanned text into sentence-level assertions, each
// used as a standalone search query. Blank fragments are dropped. Assertions
// are derived, not persisted.
func SplitAssertions(text string) []string {
	parts := sentenceBoundary.Split(text, -1)
	assertions := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		assertions = append(assertions, part)
	}
	return assertions
}
