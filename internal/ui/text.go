package ui

import (
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
)

// Description display limits for `oit issues show`.
const (
	DefaultMaxLines     = 15
	DefaultContextLines = 5
)

func itoa(n int) string { return strconv.Itoa(n) }

// TruncateLines keeps contextLines at each end of text and replaces the
// middle with a marker when text has more than maxLines lines.
func TruncateLines(text string, maxLines, contextLines int) string {
	lines := strings.Split(text, "\n")
	if text == "" || len(lines) <= maxLines {
		return text
	}
	if contextLines < 1 {
		contextLines = DefaultContextLines
	}
	if maxLines < contextLines*2+1 {
		return strings.Join(lines[:maxLines], "\n") + "\n..."
	}

	hidden := len(lines) - 2*contextLines
	var b strings.Builder
	b.WriteString(strings.Join(lines[:contextLines], "\n"))
	b.WriteString("\n")
	b.WriteString(RenderMuted("... (" + itoa(hidden) + " lines hidden, use --full) ..."))
	b.WriteString("\n")
	b.WriteString(strings.Join(lines[len(lines)-contextLines:], "\n"))
	return b.String()
}

// TruncateSimple performs simple end truncation with "..." suffix.
// UTF-8 safe.
func TruncateSimple(text string, maxLen int) string {
	if utf8.RuneCountInString(text) <= maxLen {
		return text
	}
	if maxLen <= 3 {
		return "..."
	}
	runes := []rune(text)
	return string(runes[:maxLen-3]) + "..."
}

// WrapText wraps text at word boundaries to fit within maxWidth.
// Preserves existing line breaks.
func WrapText(text string, maxWidth int) string {
	if maxWidth <= 0 {
		maxWidth = 80
	}
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = wrapLine(line, maxWidth)
	}
	return strings.Join(lines, "\n")
}

func wrapLine(line string, maxWidth int) string {
	if utf8.RuneCountInString(line) <= maxWidth {
		return line
	}
	var b strings.Builder
	n := 0
	for _, word := range strings.Fields(line) {
		wl := utf8.RuneCountInString(word)
		switch {
		case n == 0:
		case n+1+wl <= maxWidth:
			b.WriteString(" ")
			n++
		default:
			b.WriteString("\n")
			n = 0
		}
		b.WriteString(word)
		n += wl
	}
	return b.String()
}

// ShouldTruncate returns true if text exceeds the given thresholds.
func ShouldTruncate(text string, maxLines, maxChars int) bool {
	if maxChars > 0 && utf8.RuneCountInString(text) > maxChars {
		return true
	}
	if maxLines > 0 && strings.Count(text, "\n")+1 > maxLines {
		return true
	}
	return false
}

// RelativeTime renders t as "3 minutes ago". The zero time renders as "-".
func RelativeTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return humanize.Time(t)
}
