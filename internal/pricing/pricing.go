// Package pricing holds the per-model price table used for cost estimates.
// The table can be loaded from YAML and hot reloaded while serving.
package pricing

import (
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/Manjussha/insightlab/internal/tokenizer"
)

// ErrUnknownModel is returned when a model has no price entry.
var ErrUnknownModel = errors.New("unknown model")

// ModelPrice is the USD price per 1K tokens.
type ModelPrice struct {
	Input  float64 `yaml:"input" json:"input"`
	Output float64 `yaml:"output" json:"output"`
}

// ChartEntry is one bar of the comparison chart, USD per 1M input tokens.
type ChartEntry struct {
	Label      string  `yaml:"label" json:"label"`
	PerMillion float64 `yaml:"per_million" json:"per_million"`
}

// Table is the full pricing document.
type Table struct {
	Models map[string]ModelPrice `yaml:"models" json:"models"`
	Chart  []ChartEntry          `yaml:"chart" json:"chart"`
}

// DefaultTable returns the built-in prices.
func DefaultTable() Table {
	return Table{
		Models: map[string]ModelPrice{
			"gpt-4":   {Input: 0.01, Output: 0.03},
			"gpt-3.5": {Input: 0.001, Output: 0.002},
			"claude":  {Input: 0.003, Output: 0.015},
			"gemini":  {Input: 0.0015, Output: 0.002},
		},
		Chart: []ChartEntry{
			{Label: "GPT-4", PerMillion: 10000},
			{Label: "Claude 3.5", PerMillion: 3000},
			{Label: "Gemini 1.5", PerMillion: 1500},
			{Label: "GPT-3.5", PerMillion: 1000},
		},
	}
}

// LoadFile reads a YAML pricing table. Sections missing from the file keep
// their defaults.
func LoadFile(path string) (Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Table{}, fmt.Errorf("pricing.LoadFile: %w", err)
	}
	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return Table{}, fmt.Errorf("pricing.LoadFile: parse %s: %w", path, err)
	}

	def := DefaultTable()
	if len(t.Models) == 0 {
		t.Models = def.Models
	}
	if len(t.Chart) == 0 {
		t.Chart = def.Chart
	}
	for name, p := range t.Models {
		if p.Input < 0 || p.Output < 0 {
			return Table{}, fmt.Errorf("pricing.LoadFile: model %q: negative price", name)
		}
	}
	return t, nil
}

// Cost returns the estimated USD cost of tokens at price, rounded to 5 decimals.
// The tokens are billed 70% as input and 30% as output.
func Cost(tokens int, price ModelPrice) float64 {
	e := tokenizer.SplitEstimate(tokens)
	c := (e.InputTokens*price.Input + e.OutputTokens*price.Output) / 1000
	return math.Round(c*1e5) / 1e5
}

// Catalog is a concurrency-safe, swappable Table.
type Catalog struct {
	mu    sync.RWMutex
	table Table
}

// NewCatalog creates a Catalog serving t.
func NewCatalog(t Table) *Catalog {
	return &Catalog{table: t}
}

// Table returns a copy of the current table.
func (c *Catalog) Table() Table {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := Table{
		Models: make(map[string]ModelPrice, len(c.table.Models)),
		Chart:  append([]ChartEntry(nil), c.table.Chart...),
	}
	for k, v := range c.table.Models {
		out.Models[k] = v
	}
	return out
}

// Set replaces the current table.
func (c *Catalog) Set(t Table) {
	c.mu.Lock()
	c.table = t
	c.mu.Unlock()
}

// Reload replaces the table with the contents of path.
// On error the current table is kept.
func (c *Catalog) Reload(path string) error {
	t, err := LoadFile(path)
	if err != nil {
		return err
	}
	c.Set(t)
	return nil
}

// Price looks up a model.
func (c *Catalog) Price(model string) (ModelPrice, error) {
	c.mu.RLock()
	p, ok := c.table.Models[model]
	c.mu.RUnlock()
	if !ok {
		return ModelPrice{}, fmt.Errorf("pricing: %w: %q", ErrUnknownModel, model)
	}
	return p, nil
}

// Cost estimates the cost of tokens on model.
func (c *Catalog) Cost(tokens int, model string) (float64, error) {
	p, err := c.Price(model)
	if err != nil {
		return 0, err
	}
	return Cost(tokens, p), nil
}

// Models returns the known model names, sorted.
func (c *Catalog) Models() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.table.Models))
	for k := range c.table.Models {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
