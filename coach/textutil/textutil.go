// Package textutil normalizes free-text input before it is accepted
// as a configuration value.
package textutil

import (
	"strings"
	"unicode"
)

// MinValidRunes is the shortest cleaned input accepted as a
// configuration value.
const MinValidRunes = 3

// Basic punctuation kept by Clean, covering both Latin and Persian
// marks.
const allowedPunct = ".,!?؟،؛:;()\"'«»%-_/&@+"

// Clean collapses runs of whitespace to single spaces, trims the
// result, and drops characters outside the allow-list (letters,
// digits, basic punctuation). Pure function.
func Clean(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		switch {
		case unicode.IsSpace(r):
			b.WriteByte(' ')
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
		case strings.ContainsRune(allowedPunct, r):
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// IsValid reports whether text survives Clean with at least
// MinValidRunes code points.
func IsValid(text string) bool {
	cleaned := Clean(text)
	if cleaned == "" {
		return false
	}
	count := 0
	for range cleaned {
		count++
		if count >= MinValidRunes {
			return true
		}
	}
	return false
}
