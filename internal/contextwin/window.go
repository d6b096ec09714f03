// Package contextwin models a chat context window filling up with messages.
package contextwin

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/Manjussha/insightlab/internal/tokenizer"
)

// MaxTokens is the simulated window size.
const MaxTokens = 128000

// Kind is a message role.
type Kind string

const (
	KindUser      Kind = "user"
	KindAssistant Kind = "assistant"
	KindSystem    Kind = "system"
)

// baseCost is the fixed token cost of each kind before jitter.
var baseCost = map[Kind]int{
	KindUser:      50,
	KindAssistant: 150,
	KindSystem:    100,
}

const jitter = 50

var (
	ErrUnknownKind = errors.New("unknown message type")
	ErrIndex       = errors.New("message index out of range")
)

// Message is one entry in the window.
type Message struct {
	Kind   Kind `json:"type"`
	Tokens int  `json:"tokens"`
}

// Usage summarizes a Window.
type Usage struct {
	Used    int                  `json:"used"`
	Max     int                  `json:"max"`
	Percent float64              `json:"percent"`
	Zone    tokenizer.BudgetZone `json:"zone"`
}

// Window is a sequence of messages. It is not safe for concurrent use;
// Store serializes access.
type Window struct {
	messages []Message
	used     int
	rnd      func(n int) int
}

// NewWindow creates an empty Window with random jitter.
func NewWindow() *Window {
	return &Window{rnd: rand.IntN}
}

// Add appends a message of kind and returns it.
func (w *Window) Add(kind Kind) (Message, error) {
	base, ok := baseCost[kind]
	if !ok {
		return Message{}, fmt.Errorf("contextwin.Add: %w: %q", ErrUnknownKind, kind)
	}
	m := Message{Kind: kind, Tokens: base + w.rnd(jitter)}
	w.messages = append(w.messages, m)
	w.used += m.Tokens
	return m, nil
}

// Remove deletes the message at index.
func (w *Window) Remove(index int) error {
	if index < 0 || index >= len(w.messages) {
		return fmt.Errorf("contextwin.Remove: %w: %d", ErrIndex, index)
	}
	w.used -= w.messages[index].Tokens
	w.messages = append(w.messages[:index], w.messages[index+1:]...)
	return nil
}

// Clear empties the window.
func (w *Window) Clear() {
	w.messages = nil
	w.used = 0
}

// Messages returns a copy of the messages in order.
func (w *Window) Messages() []Message {
	return append([]Message(nil), w.messages...)
}

// Usage reports how full the window is.
func (w *Window) Usage() Usage {
	return Usage{
		Used:    w.used,
		Max:     MaxTokens,
		Percent: float64(w.used) / MaxTokens * 100,
		Zone:    tokenizer.ZoneFor(w.used, MaxTokens, tokenizer.DefaultThresholds),
	}
}
