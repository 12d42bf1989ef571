package nlu

import (
	"strings"

	"github.com/garyellow/tucurso-bot/internal/catalog"
)

// Canonical folds text to the form used for matching: catalog
// normalization, then every rune other than [a-z0-9#+] becomes a space and
// runs of spaces collapse. "¿Cuánto cuesta C#?" becomes "cuanto cuesta c#".
func Canonical(text string) string {
	n := catalog.Normalize(text)
	var b strings.Builder
	b.Grow(len(n))
	space := true
	for i := 0; i < len(n); i++ {
		c := n[i]
		if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '#' || c == '+' {
			b.WriteByte(c)
			space = false
			continue
		}
		if !space {
			b.WriteByte(' ')
			space = true
		}
	}
	return strings.TrimSuffix(b.String(), " ")
}

// Tokenize splits the canonical form of text into words.
func Tokenize(text string) []string {
	return strings.Fields(Canonical(text))
}

// containsWords reports whether phrase occurs in text on word boundaries.
// Both arguments must already be canonical.
func containsWords(text, phrase string) bool {
	if phrase == "" {
		return false
	}
	return strings.Contains(" "+text+" ", " "+phrase+" ")
}

var stopwords = map[string]struct{}{
	"a": {}, "al": {}, "con": {}, "cual": {}, "cuales": {}, "de": {}, "del": {},
	"el": {}, "en": {}, "es": {}, "la": {}, "las": {}, "lo": {}, "los": {},
	"me": {}, "mi": {}, "o": {}, "para": {}, "por": {}, "que": {}, "se": {},
	"sobre": {}, "su": {}, "te": {}, "tu": {}, "un": {}, "una": {}, "y": {},
}

func isStopword(w string) bool {
	_, ok := stopwords[w]
	return ok
}
