package dialogue

import (
	"strings"
	"unicode/utf8"
)

// Sanitize trims text, collapses runs of whitespace into one space and caps
// the result at maxRunes runes. maxRunes <= 0 disables the cap.
func Sanitize(text string, maxRunes int) string {
	text = strings.Join(strings.Fields(text), " ")
	if maxRunes <= 0 || utf8.RuneCountInString(text) <= maxRunes {
		return text
	}
	runes := []rune(text)
	return strings.TrimSpace(string(runes[:maxRunes]))
}
