package insight

import (
	"fmt"

	"github.com/Manjussha/insightlab/internal/tokenizer"
)

// MaxBubbles is how many word bubbles a report carries.
const MaxBubbles = 25

// Coster prices an estimated token count for a model.
type Coster interface {
	Cost(tokens int, model string) (float64, error)
}

// Report is the size and cost breakdown of one prompt.
type Report struct {
	Model    string                  `json:"model"`
	Chars    int                     `json:"chars"`
	Words    int                     `json:"words"`
	Tokens   int                     `json:"tokens"`
	Estimate tokenizer.TokenEstimate `json:"estimate"`
	Cost     float64                 `json:"cost"`
	Bubbles  []string                `json:"bubbles"`
	More     int                     `json:"more"`
	Insights []Insight               `json:"insights"`
}

// Measure builds the Report of text priced for model.
func Measure(text, model string, prices Coster) (Report, error) {
	tokens := tokenizer.EstimateTokens(text)
	cost, err := prices.Cost(tokens, model)
	if err != nil {
		return Report{}, fmt.Errorf("insight.Measure: %w", err)
	}
	bubbles, more := Bubbles(text, MaxBubbles)
	return Report{
		Model:    model,
		Chars:    tokenizer.CharCount(text),
		Words:    tokenizer.CountWords(text),
		Tokens:   tokens,
		Estimate: tokenizer.SplitEstimate(tokens),
		Cost:     cost,
		Bubbles:  bubbles,
		More:     more,
		Insights: Analyze(text),
	}, nil
}
