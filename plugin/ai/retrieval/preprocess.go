package retrieval

import (
	"strings"
	"unicode"
)

// DefaultMaxInputRunes bounds preprocessed text length.
const DefaultMaxInputRunes = 8000

// Preprocess normalizes text before fingerprinting or encoding.
// Letters of any script, combining marks and digits are kept and lower-cased;
// everything else becomes a single space. The result has no leading or
// trailing space and holds at most maxRunes runes. Preprocess is idempotent.
func Preprocess(text string, maxRunes int) string {
	if maxRunes <= 0 {
		maxRunes = DefaultMaxInputRunes
	}

	var b strings.Builder
	b.Grow(min(len(text), maxRunes*4))

	n := 0
	gap := false
	for _, r := range text {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.IsMark(r) {
			gap = true
			continue
		}
		if gap && n > 0 {
			if n+1 >= maxRunes {
				break
			}
			b.WriteByte(' ')
			n++
		}
		gap = false
		if n >= maxRunes {
			break
		}
		b.WriteRune(unicode.ToLower(r))
		n++
	}

	return b.String()
}

// tokenize splits preprocessed text on whitespace.
func tokenize(normalized string) []string {
	return strings.Fields(normalized)
}
