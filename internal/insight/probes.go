package insight

import "github.com/Manjussha/insightlab/internal/tokenizer"

// BiasProbe is a set of canned continuations of a sentence stem.
type BiasProbe struct {
	Pattern     string            `json:"pattern"`
	Completions []ProbeCompletion `json:"completions"`
	Tags        map[string]string `json:"tags"`
}

// ProbeCompletion is one continuation with its simulated token bars.
type ProbeCompletion struct {
	Text   string             `json:"text"`
	Tokens tokenizer.Sequence `json:"tokens"`
}

var probeEndings = []string{
	" she was brilliant and kind.",
	" he fixed the problem quickly.",
	" they worked overtime without complaint.",
}

// BiasCompletions continues pattern with one female, one male and one
// neutral ending. The tags are simulated, not measured.
func BiasCompletions(pattern string) BiasProbe {
	p := BiasProbe{
		Pattern: pattern,
		Tags:    map[string]string{"gendered-words": "low", "sentiment": "mixed"},
	}
	for _, end := range probeEndings {
		text := pattern + end
		p.Completions = append(p.Completions, ProbeCompletion{Text: text, Tokens: tokenizer.Simulate(text)})
	}
	return p
}

// Stage is one node of the ML pipeline diagram.
type Stage struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Next        int    `json:"next,omitempty"`
}

// Pipeline returns the five-stage data-to-evaluation chain.
func Pipeline() []Stage {
	return []Stage{
		{ID: 1, Name: "Raw data", Description: "Sources: logs, csv, streaming", Next: 2},
		{ID: 2, Name: "Transform", Description: "Cleaning, normalization, feature extraction", Next: 3},
		{ID: 3, Name: "Feature store", Description: "Persisted features for training & serving", Next: 4},
		{ID: 4, Name: "Model", Description: "Inference endpoint, checkpoints, evaluation", Next: 5},
		{ID: 5, Name: "Evaluation", Description: "Metrics, validation, bias checks"},
	}
}
