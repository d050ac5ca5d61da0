package onboarding

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// validName reports whether the trimmed text is a non-empty run of letters.
// Digits, spaces, and punctuation are rejected.
func validName(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}
	for _, r := range text {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

// normalizeName trims text, upper-cases the first letter, and lower-cases
// the rest ("aNNA " -> "Anna").
func normalizeName(text string) string {
	text = strings.TrimSpace(text)
	first, size := utf8.DecodeRuneInString(text)
	if first == utf8.RuneError {
		return text
	}
	return string(unicode.ToUpper(first)) + strings.ToLower(text[size:])
}
