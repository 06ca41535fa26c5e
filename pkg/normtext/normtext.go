// Package normtext canonicalizes free text before any catalog matching:
// lowercase, diacritics stripped, whitespace collapsed.
package normtext

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var stripDiacritics = transform.Chain(
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)),
	norm.NFC,
)

// Spanish filler words dropped when generating catalog key variants.
var stopwords = map[string]struct{}{
	"de": {}, "del": {}, "la": {}, "el": {}, "los": {}, "las": {},
	"y": {}, "a": {}, "en": {}, "por": {}, "para": {},
}

// Canonicalize lowercases, strips accents, collapses whitespace and trims.
func Canonicalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if out, _, err := transform.String(stripDiacritics, s); err == nil {
		s = out
	}
	return strings.Join(strings.Fields(s), " ")
}

// Variants returns the canonical key plus widened forms of it: spaces
// removed, non-alphanumerics removed, stopwords removed. All variants of a
// catalog entry point at the same identifier; duplicates are elided.
func Variants(s string) []string {
	base := Canonicalize(s)
	if base == "" {
		return nil
	}

	seen := map[string]struct{}{base: {}}
	out := []string{base}
	add := func(v string) {
		if v == "" {
			return
		}
		if _, dup := seen[v]; dup {
			return
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}

	add(strings.ReplaceAll(base, " ", ""))

	var alnum strings.Builder
	for _, r := range base {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			alnum.WriteRune(r)
		}
	}
	add(alnum.String())

	kept := make([]string, 0, 4)
	for _, w := range strings.Fields(base) {
		if _, stop := stopwords[w]; !stop {
			kept = append(kept, w)
		}
	}
	if len(kept) > 0 {
		add(strings.Join(kept, " "))
	}

	return out
}
