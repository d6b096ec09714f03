// Package tokenizer provides the heuristic tokenizer, the deterministic
// token-probability simulator, and token/cost estimation helpers.
package tokenizer

import (
	"regexp"
	"strings"
	"unicode"
)

// EmptySentinel is the single token produced for blank input.
const EmptySentinel = "[empty]"

// tokenPattern matches a word run with at most one inner apostrophe
// (straight or curly), or a run of punctuation. Word characters are the
// ASCII class [A-Za-z0-9_]; the excluded set in the second branch is the
// same whitespace isSpace trims.
var tokenPattern = regexp.MustCompile(`\w+(?:['\x{2019}]\w+)?|[^\s\w\x{0B}\x{85}\p{Z}\x{FEFF}]+`)

// Tokenize splits text into word and punctuation tokens.
// Whitespace only separates tokens. Blank input yields [EmptySentinel].
func Tokenize(text string) []string {
	trimmed := strings.TrimFunc(text, isSpace)
	if trimmed == "" {
		return []string{EmptySentinel}
	}
	return tokenPattern.FindAllString(trimmed, -1)
}

func isSpace(r rune) bool {
	return unicode.IsSpace(r) || unicode.In(r, unicode.Z) || r == '\uFEFF'
}
