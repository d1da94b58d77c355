package tokenizer

import (
	"strings"
)

// CountTokens estimates tokens at roughly four tokens per three words.
func CountTokens(text string) int {
	words := strings.Fields(text)
	return max(len(words)*4/3, 1)
}

// Truncate keeps the leading words of text that fit within maxTokens by the
// CountTokens estimate. The second result reports whether anything was cut.
func Truncate(text string, maxTokens int) (string, bool) {
	if maxTokens <= 0 {
		return text, false
	}
	words := strings.Fields(text)
	keep := maxTokens * 3 / 4
	if len(words) <= keep {
		return text, false
	}
	return strings.Join(words[:keep], " "), true
}
