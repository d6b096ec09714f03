// Package insight implements the prompt heuristics shown on the dashboard:
// size metrics, regex-based advice, bias probes and the pipeline diagram.
package insight

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/Manjussha/insightlab/internal/tokenizer"
)

// Level grades an Insight.
type Level string

const (
	LevelOK   Level = "ok"
	LevelWarn Level = "warn"
	LevelFail Level = "fail"
	LevelCode Level = "code"
	LevelTip  Level = "tip"
)

// Insight is one piece of prompt advice.
type Insight struct {
	Level  Level  `json:"level"`
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

const (
	minPromptChars = 20
	maxPromptChars = 2000
	toneHintChars  = 50
)

var (
	instructionPattern = regexp.MustCompile(`(?i)\b(write|create|generate|make|explain|summarize|analyze|calculate|compare|list|describe)\b`)
	codePattern        = regexp.MustCompile(`(?i)\b(code|function|script|program|python|javascript|js|java|c\+\+|ruby|php|sql|api)\b`)
	formatPattern      = regexp.MustCompile(`(?i)\b(table|list|bullet|json|xml|markdown|html|regex|csv)\b`)
	stylePattern       = regexp.MustCompile(`(?i)\b(professional|casual|funny|formal|friendly|technical|simple|detailed|brief)\b`)
	constraintPattern  = regexp.MustCompile(`(?i)\b(max|limit|only|no more than|exactly|precisely|approximately)\b`)
)

// Analyze returns advice for text, length verdict first.
func Analyze(text string) []Insight {
	n := tokenizer.CharCount(text)
	var out []Insight

	switch {
	case n < minPromptChars:
		out = append(out, Insight{LevelWarn, "Too Short", "Add more context for better results"})
	case n > maxPromptChars:
		out = append(out, Insight{LevelWarn, "Too Long", "Consider breaking into smaller prompts"})
	default:
		out = append(out, Insight{LevelOK, "Optimal Length", "Good prompt length"})
	}

	if instructionPattern.MatchString(text) {
		out = append(out, Insight{LevelOK, "Clear Instruction", "Action verbs detected"})
	} else {
		out = append(out, Insight{LevelFail, "No Instruction", `Add action verbs like "write", "explain"`})
	}
	if formatPattern.MatchString(text) {
		out = append(out, Insight{LevelOK, "Format Specified", "Will improve output quality"})
	}
	if codePattern.MatchString(text) {
		out = append(out, Insight{LevelCode, "Code Request", "Specify language and requirements"})
	}
	if constraintPattern.MatchString(text) {
		out = append(out, Insight{LevelOK, "Constraints Given", "Limits keep the output focused"})
	}
	if !stylePattern.MatchString(text) && n > toneHintChars {
		out = append(out, Insight{LevelTip, "Tip", "Specify tone (professional, casual, etc.)"})
	}
	return out
}

// Bubbles returns "index:word" labels for the first limit words and the
// number of words left over.
func Bubbles(text string, limit int) ([]string, int) {
	words := strings.Fields(text)
	shown := words
	if len(shown) > limit {
		shown = shown[:limit]
	}
	out := make([]string, len(shown))
	for i, w := range shown {
		out[i] = strconv.Itoa(i) + ":" + w
	}
	return out, len(words) - len(shown)
}
