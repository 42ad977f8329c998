package utils

import (
	"unicode"
)

// MaxWordLen bounds custom words accepted from clients.
const MaxWordLen = 60

// IsOnlyNumbers checks if a string consists entirely of numeric digits
func IsOnlyNumbers(s string) bool {
	if len(s) == 0 {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// ContainsBreak reports whether s holds whitespace or control characters,
// which the tokenizer would split on.
func ContainsBreak(s string) bool {
	for _, r := range s {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return true
		}
	}
	return false
}

// IsRepetitive checks if a string consists of repetitive characters
// Simple version that checks for repeated characters (e.g., "aaa", "bbb")
func IsRepetitive(s string) bool {
	if len(s) <= 2 {
		return false
	}
	firstChar := s[0]
	for i := 1; i < len(s); i++ {
		if s[i] != firstChar {
			return false
		}
	}
	return true
}

// IsValidWord checks if a trimmed word can be added as a custom word:
// a single token, not just digits, not a run of one character, and
// at most MaxWordLen runes.
func IsValidWord(s string) bool {
	if len(s) == 0 || len([]rune(s)) > MaxWordLen {
		return false
	}
	if ContainsBreak(s) || IsOnlyNumbers(s) || IsRepetitive(s) {
		return false
	}
	return true
}
