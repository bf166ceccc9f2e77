// Package sanitize cleans free text that crosses a trust boundary: AI output,
// operator notes and inbound reply bodies.
package sanitize

import (
	"html"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	tagPattern       = regexp.MustCompile(`<[^>]*>`)
	lineBreakPattern = regexp.MustCompile(`(?i)<(br|/p|/div|/li|/tr)[^>]*>`)
	blankRunPattern  = regexp.MustCompile(`\n{3,}`)
)

// StripHTML reduces markup to plain text, keeping paragraph and line breaks.
// Tags are stripped again after entity decoding so encoded markup cannot survive.
func StripHTML(s string) string {
	out := lineBreakPattern.ReplaceAllString(s, "\n")
	out = tagPattern.ReplaceAllString(out, "")
	out = html.UnescapeString(out)
	out = strings.ReplaceAll(out, " ", " ")
	out = tagPattern.ReplaceAllString(out, "")
	out = blankRunPattern.ReplaceAllString(out, "\n\n")
	return strings.TrimSpace(out)
}

func Text(s string) string {
	return StripHTML(s)
}

// Truncate cuts s to max runes and marks the cut with an ellipsis.
func Truncate(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max]) + "…"
}
