package tokenizer

import (
	"strings"
	"unicode/utf16"
)

// Share of an estimated token count billed as input; the rest is output.
const inputShare = 0.7

// TokenEstimate splits an estimated token count into input and output.
type TokenEstimate struct {
	InputTokens  float64 `json:"input_tokens"`
	OutputTokens float64 `json:"output_tokens"`
	TotalTokens  int     `json:"total_tokens"`
}

// EstimateTokens estimates the token count of a text string.
// Uses the rule of thumb: ~4 UTF-16 code units per token. Blank text is 0.
func EstimateTokens(text string) int {
	if strings.TrimSpace(text) == "" {
		return 0
	}
	return (utf16Len(text) + 3) / 4
}

// SplitEstimate assumes 70% of the tokens are prompt and 30% completion.
func SplitEstimate(tokens int) TokenEstimate {
	in := float64(tokens) * inputShare
	return TokenEstimate{
		InputTokens:  in,
		OutputTokens: float64(tokens) - in,
		TotalTokens:  tokens,
	}
}

// CountWords counts whitespace-separated words.
func CountWords(text string) int {
	return len(strings.Fields(text))
}

// CharCount counts characters the way the dashboard does (UTF-16 units).
func CharCount(text string) int {
	return utf16Len(text)
}

func utf16Len(text string) int {
	n := 0
	for _, r := range text {
		n += utf16.RuneLen(r)
	}
	return n
}
