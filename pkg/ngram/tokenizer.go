package ngram

import "strings"

// trimChars is stripped from both ends of every whitespace-delimited piece.
const trimChars = ".,!?;:\"()[]{}"

// Tokenize normalizes raw text into word tokens.
// It lowercases, splits on whitespace runs, strips surrounding punctuation
// and drops pieces that end up empty. Training and prediction both go through
// this function so their tokens always agree.
func Tokenize(text string) []string {
	text = strings.ToLower(text)
	text = strings.NewReplacer("\n", " ", "\t", " ").Replace(text)

	fields := strings.Fields(text)
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if tok := strings.Trim(f, trimChars); tok != "" {
			tokens = append(tokens, tok)
		}
	}
	return tokens
}
