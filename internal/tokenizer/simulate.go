package tokenizer

import "math"

const (
	// MaxContentTokens caps the content tokens of a simulated sequence.
	MaxContentTokens = 40

	// NextToken is the terminal pseudo-token appended to every sequence.
	NextToken = "‹next›"

	minProbability = 0.01
	maxProbability = 0.98
)

// Token is a token string paired with a probability in [0,1].
type Token struct {
	Text        string  `json:"text"`
	Probability float64 `json:"probability"`
}

// Sequence is an ordered list of tokens whose last entry is the terminal
// pseudo-token.
type Sequence []Token

// Texts returns the token strings in order.
func (s Sequence) Texts() []string {
	out := make([]string, len(s))
	for i, t := range s {
		out[i] = t.Text
	}
	return out
}

// Seed sums the Unicode code points of text. Invalid UTF-8 bytes count
// as U+FFFD.
func Seed(text string) int64 {
	var seed int64
	for _, r := range text {
		seed += int64(r)
	}
	return seed
}

// Simulate produces a deterministic pseudo-probability for each of the
// first MaxContentTokens tokens of text, followed by NextToken.
// The seed is taken from the untrimmed text.
func Simulate(text string) Sequence {
	tokens := Tokenize(text)
	if len(tokens) > MaxContentTokens {
		tokens = tokens[:MaxContentTokens]
	}
	seed := float64(Seed(text))

	seq := make(Sequence, 0, len(tokens)+1)
	for i, tok := range tokens {
		seq = append(seq, Token{Text: tok, Probability: ContentProbability(seed, i)})
	}
	return append(seq, Token{Text: NextToken, Probability: NextProbability(seed)})
}

// ContentProbability is the simulated probability of the token at index i.
func ContentProbability(seed float64, i int) float64 {
	r := math.Abs(math.Sin(seed+float64(i)*7.3)) * 0.6
	noise := math.Abs(math.Cos((float64(i)+1.1)*3.7)) * 0.18
	return clamp(0.04+r*0.6+noise, minProbability, maxProbability)
}

// NextProbability is the simulated probability of the terminal token.
// Bounded to [0.02, 0.42] by its coefficients.
func NextProbability(seed float64) float64 {
	return math.Max(0.02, 0.12+math.Abs(math.Sin(seed))*0.3)
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}
