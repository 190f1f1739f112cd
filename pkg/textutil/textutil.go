// Package textutil holds the text normalization rules shared by ingestion,
// retrieval and response recovery.
package textutil

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var reWhitespace = regexp.MustCompile(`\s+`)

// Normalize collapses runs of whitespace into a single space and trims the result.
func Normalize(s string) string {
	return strings.TrimSpace(reWhitespace.ReplaceAllString(s, " "))
}

// Truncate truncates s to maxBytes without splitting UTF-8 runes.
func Truncate(s string, maxBytes int) string {
	if maxBytes <= 0 {
		return ""
	}
	if len(s) <= maxBytes {
		return s
	}
	for maxBytes > 0 && !utf8.RuneStart(s[maxBytes]) {
		maxBytes--
	}
	return s[:maxBytes]
}

// Ellipsize truncates s like Truncate and marks the cut with "...".
func Ellipsize(s string, maxBytes int) string {
	if len(s) <= maxBytes {
		return s
	}
	return Truncate(s, maxBytes) + "..."
}
