package types

import (
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	stripPolicy = bluemonday.StrictPolicy()

	// block-level closers become line breaks before tags are stripped
	blockBreakRe = regexp.MustCompile(`(?i)<\s*(br\s*/?|/p|/div|/li|/h[1-6])\s*>`)
	blankLinesRe = regexp.MustCompile(`\n{3,}`)
)

// PlainText converts a rich-text (HTML) description into plain text for
// terminal output.
func PlainText(rich string) string {
	if rich == "" {
		return ""
	}
	s := blockBreakRe.ReplaceAllString(rich, "$0\n")
	s = stripPolicy.Sanitize(s)
	s = html.UnescapeString(s)
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	s = strings.Join(lines, "\n")
	s = blankLinesRe.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// Excerpt returns the first line of the plain text, cut to n runes.
func Excerpt(rich string, n int) string {
	s := PlainText(rich)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	r := []rune(s)
	if n > 0 && len(r) > n {
		return string(r[:n-1]) + "…"
	}
	return s
}
