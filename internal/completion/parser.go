package completion

import (
	"errors"
	"fmt"
	"math"
	"sort"

	json "github.com/goccy/go-json"

	"github.com/Manjussha/insightlab/internal/tokenizer"
)

// ErrMalformed is returned when a response cannot be turned into a Result.
var ErrMalformed = errors.New("malformed completion response")

const (
	minLogprobProb  = 0.0001
	maxLogprobProb  = 0.999
	missingProb     = 0.02
	structuredNextP = 0.02
)

// Parse decodes a raw upstream body and parses it.
func Parse(raw []byte) (Result, error) {
	var resp ProviderResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return Result{}, fmt.Errorf("completion.Parse: %w: %v", ErrMalformed, err)
	}
	return ParseResponse(&resp)
}

// ParseResponse builds a Result from the first choice of resp.
// Choices with per-position candidates yield provider probabilities;
// anything else is simulated from the choice text.
func ParseResponse(resp *ProviderResponse) (res Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			res, err = Result{}, fmt.Errorf("completion.ParseResponse: %w: %v", ErrMalformed, r)
		}
	}()

	if resp == nil || len(resp.Choices) == 0 {
		return Result{}, fmt.Errorf("completion.ParseResponse: %w: no choices", ErrMalformed)
	}
	choice := resp.Choices[0]

	lp := choice.Logprobs
	if lp == nil || len(lp.TopLogprobs) == 0 {
		return Result{Text: choice.Text, Tokens: tokenizer.Simulate(choice.Text), Source: SourceSimulated}, nil
	}

	n := min(max(len(lp.Tokens), len(lp.TopLogprobs)), tokenizer.MaxContentTokens)
	seq := make(tokenizer.Sequence, 0, n+1)
	for i := 0; i < n; i++ {
		var candidates map[string]float64
		if i < len(lp.TopLogprobs) {
			candidates = lp.TopLogprobs[i]
		}
		text, logprob, ok := best(candidates)
		if !ok {
			var sampled string
			if i < len(lp.Tokens) {
				sampled = lp.Tokens[i]
			}
			seq = append(seq, tokenizer.Token{Text: sampled, Probability: missingProb})
			continue
		}
		p := math.Min(maxLogprobProb, math.Max(minLogprobProb, math.Exp(logprob)))
		seq = append(seq, tokenizer.Token{Text: text, Probability: p})
	}
	seq = append(seq, tokenizer.Token{Text: tokenizer.NextToken, Probability: structuredNextP})

	return Result{Text: choice.Text, Tokens: seq, Source: SourceLogprobs}, nil
}

// best returns the highest-logprob candidate. Ties go to the smallest token
// so that map iteration order never leaks into the output. NaN is skipped.
func best(candidates map[string]float64) (string, float64, bool) {
	keys := make([]string, 0, len(candidates))
	for k, v := range candidates {
		if !math.IsNaN(v) {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return "", 0, false
	}
	sort.Strings(keys)

	top := keys[0]
	for _, k := range keys[1:] {
		if candidates[k] > candidates[top] {
			top = k
		}
	}
	return top, candidates[top], true
}
