package catalog

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize returns the comparison key for s: NFD decomposition, combining
// marks removed, any remaining non-ASCII rune dropped, lowercased.
//
// Normalize is idempotent: Normalize(Normalize(s)) == Normalize(s).
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	// Transformers carry state, so a fresh chain is built per call.
	t := transform.Chain(
		norm.NFD,
		runes.Remove(runes.In(unicode.Mn)),
		runes.Remove(runes.Predicate(func(r rune) bool { return r > unicode.MaxASCII })),
	)
	out, _, err := transform.String(t, s)
	if err != nil {
		// Only reachable on malformed UTF-8; fall back to a rune filter.
		out = asciiOnly(s)
	}
	return strings.ToLower(out)
}

func asciiOnly(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r <= unicode.MaxASCII && r != unicode.ReplacementChar {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// TitleCase upper-cases every letter that follows a non-letter and
// lower-cases the rest, so "unity 2d" becomes "Unity 2D".
func TitleCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			if prevLetter {
				b.WriteRune(unicode.ToLower(r))
			} else {
				b.WriteRune(unicode.ToUpper(r))
			}
			prevLetter = true
			continue
		}
		b.WriteRune(r)
		prevLetter = false
	}
	return b.String()
}

// Capitalize upper-cases the first rune and lower-cases the remainder.
func Capitalize(s string) string {
	if s == "" {
		return ""
	}
	rs := []rune(strings.ToLower(s))
	rs[0] = unicode.ToUpper(rs[0])
	return string(rs)
}
