// Package render draws token sequences and prompt reports in the terminal.
package render

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/term"

	"github.com/Manjussha/insightlab/internal/insight"
	"github.com/Manjussha/insightlab/internal/tokenizer"
)

const (
	defaultWidth = 80
	labelWidth   = 16
	minBarWidth  = 10

	ansiReset  = "\033[0m"
	ansiGreen  = "\033[32m"
	ansiYellow = "\033[33m"
	ansiRed    = "\033[31m"
	ansiCyan   = "\033[36m"
	ansiDim    = "\033[2m"
)

// Renderer writes human-readable output.
type Renderer struct {
	w     io.Writer
	color bool
	width int
}

// New creates a Renderer on w. Color and width are taken from the
// terminal when w is one.
func New(w io.Writer) *Renderer {
	r := &Renderer{w: w, width: defaultWidth}
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		r.color = true
		if cols, _, err := term.GetSize(int(f.Fd())); err == nil && cols > 0 {
			r.width = cols
		}
	}
	return r
}

// Sequence draws one bar per token, probability shown as a percentage.
func (r *Renderer) Sequence(seq tokenizer.Sequence) {
	bar := max(minBarWidth, r.width-labelWidth-8)
	for _, t := range seq {
		filled := int(math.Round(t.Probability * float64(bar)))
		line := strings.Repeat("█", filled) + strings.Repeat("░", bar-filled)
		fmt.Fprintf(r.w, "%s %s %3d%%\n",
			pad(t.Text, labelWidth),
			r.c(barColor(t.Probability), line),
			Percent(t.Probability),
		)
	}
}

// Tokens prints one token per line with its index.
func (r *Renderer) Tokens(tokens []string) {
	for i, t := range tokens {
		fmt.Fprintf(r.w, "%s %q\n", r.c(ansiDim, fmt.Sprintf("%3d", i)), t)
	}
}

// Report prints prompt metrics and advice.
func (r *Renderer) Report(rep insight.Report) {
	fmt.Fprintf(r.w, "%s\n", r.c(ansiCyan, "Prompt metrics ("+rep.Model+")"))
	fmt.Fprintf(r.w, "  characters  %d\n", rep.Chars)
	fmt.Fprintf(r.w, "  words       %d\n", rep.Words)
	fmt.Fprintf(r.w, "  tokens      %d\n", rep.Tokens)
	fmt.Fprintf(r.w, "  cost        $%.5f\n", rep.Cost)
	if len(rep.Bubbles) > 0 {
		fmt.Fprintf(r.w, "  %s", strings.Join(rep.Bubbles, " "))
		if rep.More > 0 {
			fmt.Fprintf(r.w, " +%d more tokens...", rep.More)
		}
		fmt.Fprintln(r.w)
	}
	fmt.Fprintln(r.w)
	for _, in := range rep.Insights {
		fmt.Fprintf(r.w, "  %s %s: %s\n", r.c(levelColor(in.Level), levelMark(in.Level)), in.Title, in.Detail)
	}
}

// Line prints a plain line.
func (r *Renderer) Line(s string) {
	fmt.Fprintln(r.w, s)
}

// Percent scales a probability to a whole percentage for display.
func Percent(p float64) int {
	return int(math.Round(p * 100))
}

func (r *Renderer) c(ansi, text string) string {
	if !r.color {
		return text
	}
	return ansi + text + ansiReset
}

func barColor(p float64) string {
	switch {
	case p >= 0.5:
		return ansiGreen
	case p >= 0.2:
		return ansiYellow
	default:
		return ansiRed
	}
}

func levelColor(l insight.Level) string {
	switch l {
	case insight.LevelOK:
		return ansiGreen
	case insight.LevelFail:
		return ansiRed
	case insight.LevelWarn:
		return ansiYellow
	default:
		return ansiCyan
	}
}

func levelMark(l insight.Level) string {
	switch l {
	case insight.LevelOK:
		return "✓"
	case insight.LevelFail:
		return "✗"
	case insight.LevelWarn:
		return "!"
	default:
		return "•"
	}
}

// pad truncates or right-pads s to n runes.
func pad(s string, n int) string {
	if utf8.RuneCountInString(s) > n {
		return string([]rune(s)[:n-1]) + "…"
	}
	return s + strings.Repeat(" ", n-utf8.RuneCountInString(s))
}
