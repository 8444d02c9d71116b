package sanitize

import (
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// undecodable matches bytes that are not valid UTF-8 and the U+FFFD a JSON
// decoder substitutes for them.
var undecodable = runes.Predicate(func(r rune) bool {
	return r == utf8.RuneError
})

// Text removes whatever cannot be encoded as UTF-8. Valid text, including
// combining sequences and control characters, passes through byte for byte.
// It never fails.
func Text(s string) string {
	out, _, err := transform.String(runes.Remove(undecodable), s)
	if err != nil {
		return s
	}
	return out
}
