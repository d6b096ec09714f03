// Package completion turns upstream completion responses into token
// sequences, falling back to the deterministic simulator whenever the
// response carries no usable per-token probabilities.
package completion

import "github.com/Manjussha/insightlab/internal/tokenizer"

// ProviderResponse is the subset of a legacy completions response the parser reads.
type ProviderResponse struct {
	Choices []Choice `json:"choices"`
}

// Choice is one completion alternative.
type Choice struct {
	Text     string    `json:"text"`
	Logprobs *Logprobs `json:"logprobs,omitempty"`
}

// Logprobs holds the per-position sampled tokens and their top candidates.
// TopLogprobs entries may be empty or null.
type Logprobs struct {
	Tokens      []string             `json:"tokens"`
	TopLogprobs []map[string]float64 `json:"top_logprobs"`
}

// Source tells where the probabilities of a Result came from.
type Source string

const (
	SourceLogprobs  Source = "logprobs"
	SourceSimulated Source = "simulated"
)

// Result is a parsed completion.
type Result struct {
	Text   string             `json:"text"`
	Tokens tokenizer.Sequence `json:"tokens"`
	Source Source             `json:"source"`
}

// Outcome is what Service.Complete reports to its callers.
type Outcome struct {
	Result
	Status   string `json:"status"`
	Fallback bool   `json:"fallback"`
}
