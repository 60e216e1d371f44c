package chunker

import (
	"log/slog"
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

// Tokenizer counts model tokens in a piece of text.
type Tokenizer interface {
	CountTokens(text string) int
}

// TiktokenTokenizer counts tokens with a tiktoken encoding.
type TiktokenTokenizer struct {
	encoding *tiktoken.Tiktoken
}

// CountTokens implements Tokenizer.
func (t *TiktokenTokenizer) CountTokens(text string) int {
	return len(t.encoding.Encode(text, nil, nil))
}

// EstimateTokenizer is a heuristic fallback: max(runes/4, word count).
type EstimateTokenizer struct{}

// CountTokens implements Tokenizer.
func (EstimateTokenizer) CountTokens(text string) int {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return 0
	}
	estimate := len([]rune(trimmed)) / 4
	if words := len(strings.Fields(trimmed)); estimate < words {
		estimate = words
	}
	if estimate == 0 {
		estimate = 1
	}
	return estimate
}

// DefaultTokenizer returns a cl100k_base tokenizer, or the estimator when the
// encoding cannot be loaded (it is fetched and cached on first use).
func DefaultTokenizer() Tokenizer {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		slog.Warn("tiktoken encoding unavailable, estimating token counts", "error", err)
		return EstimateTokenizer{}
	}
	return &TiktokenTokenizer{encoding: enc}
}
