// Package langdetect assigns a language from the scripts present in a text.
package langdetect

import (
	"unicode"

	"postenrich/internal/domain"
)

var (
	sinhalaBlock = &unicode.RangeTable{R16: []unicode.Range16{{Lo: 0x0D80, Hi: 0x0DFF, Stride: 1}}}
	tamilBlock   = &unicode.RangeTable{R16: []unicode.Range16{{Lo: 0x0B80, Hi: 0x0BFF, Stride: 1}}}
)

// Detect returns Sinhala if text has any Sinhala block character, else Tamil
// if it has any Tamil block character, else English.
func Detect(text string) domain.Language {
	if containsAny(text, sinhalaBlock) {
		return domain.Sinhala
	}
	if containsAny(text, tamilBlock) {
		return domain.Tamil
	}
	return domain.English
}

func containsAny(text string, table *unicode.RangeTable) bool {
	for _, r := range text {
		if unicode.Is(table, r) {
			return true
		}
	}
	return false
}
