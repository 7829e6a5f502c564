package pipeline

import (
	"regexp"
	"strings"
)

const maxSlugLength = 60

var slugStrip = regexp.MustCompile(`[^\p{L}\p{N}_\- ]`)

// Slug turns a title into a file-name-safe identifier: punctuation dropped,
// lowercased, each space a dash, at most 60 letters. Accented letters are
// kept. Titles with nothing usable become "video".
func Slug(title string) string {
	s := slugStrip.ReplaceAllString(title, "")
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, " ", "-")
	if runes := []rune(s); len(runes) > maxSlugLength {
		s = strings.TrimRight(string(runes[:maxSlugLength]), "-")
	}
	if s == "" {
		return "video"
	}
	return s
}
