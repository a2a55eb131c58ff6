// Package canon canonicalizes the free-text values produced by the labeling
// pipeline: diacritics are stripped, case is folded to a single leading
// capital and per-field alias tables collapse synonyms onto one label.
package canon

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize decomposes s (NFKD), drops combining marks, trims surrounding
// whitespace and lowercases everything except the first rune, which is
// uppercased. Normalize("  MOTÓR ") == "Motor".
func Normalize(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))
	stripped, _, err := transform.String(t, s)
	if err != nil {
		stripped = s
	}
	stripped = strings.ToLower(strings.TrimSpace(stripped))
	if stripped == "" {
		return ""
	}
	r, size := utf8.DecodeRuneInString(stripped)
	return string(unicode.ToUpper(r)) + stripped[size:]
}
