// internal/ranking/tokenizer.go
package ranking

import (
	"strings"
	"unicode"
)

// Tokenize normalizes free text into interest keywords: split on any run of
// non-alphanumeric characters, lowercase, drop fragments of length <= 2,
// dedupe keeping first-appearance order. Empty input yields an empty slice.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	seen := make(map[string]struct{}, len(fields))
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if len([]rune(f)) <= 2 {
			continue
		}
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		tokens = append(tokens, f)
	}
	return tokens
}
