package argo

import "strings"

// TokenEstimator produces deterministic token counts for text when the
// backend reports no usage. Implementations must be safe for concurrent
// use.
type TokenEstimator interface {
	Count(text string) int
}

// WordCountEstimator approximates tokens by whitespace-separated words.
// Crude, but deterministic and model-independent.
type WordCountEstimator struct{}

// Count returns the number of whitespace-separated fields in text.
func (WordCountEstimator) Count(text string) int {
	return len(strings.Fields(text))
}
