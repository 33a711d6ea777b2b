package search

import (
	"strings"
	"unicode/utf8"
)

// MaxDocumentRunes bounds the text sent to the embedding provider per item.
const MaxDocumentRunes = 8000

// DocumentText joins the non-empty parts describing an item (title, author,
// category, description) into the text that gets embedded. Whitespace is
// collapsed and the result is clipped to MaxDocumentRunes.
func DocumentText(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		p = normalizeWhitespace(p)
		if p != "" {
			kept = append(kept, p)
		}
	}
	out := strings.Join(kept, ". ")
	if utf8.RuneCountInString(out) > MaxDocumentRunes {
		out = string([]rune(out)[:MaxDocumentRunes])
	}
	return out
}

// NormalizeQuery trims and collapses whitespace in a free-text query.
func NormalizeQuery(q string) string {
	return normalizeWhitespace(q)
}

// normalizeWhitespace collapses runs of whitespace (including newlines) to a
// single space and trims the ends.
func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
