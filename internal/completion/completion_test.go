package completion

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Manjussha/insightlab/internal/proxy"
	"github.com/Manjussha/insightlab/internal/tokenizer"
)

func TestParse_StructuredLogprobs(t *testing.T) {
	raw := []byte(`{"choices":[{"text":" Hello world","logprobs":{
		"tokens":[" Hello"," world"],
		"top_logprobs":[{" Hello":-0.1," Hi":-2.5},{" world":-20," there":-30}]}}]}`)

	res, err := Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, SourceLogprobs, res.Source)
	assert.Equal(t, " Hello world", res.Text)
	require.Len(t, res.Tokens, 3)

	assert.Equal(t, " Hello", res.Tokens[0].Text)
	assert.InDelta(t, math.Exp(-0.1), res.Tokens[0].Probability, 1e-12)
	assert.Equal(t, " world", res.Tokens[1].Text)
	assert.Equal(t, 0.0001, res.Tokens[1].Probability)
	assert.Equal(t, tokenizer.Token{Text: tokenizer.NextToken, Probability: 0.02}, res.Tokens[2])
}

func TestParse_EmptyCandidateMappingUsesFixedProbability(t *testing.T) {
	raw := []byte(`{"choices":[{"text":"x","logprobs":{"tokens":["x"],"top_logprobs":[{}]}}]}`)

	res, err := Parse(raw)
	require.NoError(t, err)
	require.Len(t, res.Tokens, 2)
	assert.Equal(t, tokenizer.Token{Text: "x", Probability: 0.02}, res.Tokens[0])
	assert.Equal(t, tokenizer.NextToken, res.Tokens[1].Text)
}

func TestParse_NullAndMissingMappings(t *testing.T) {
	raw := []byte(`{"choices":[{"text":"a b c","logprobs":{"tokens":["a"," b"," c"],"top_logprobs":[{"a":0},null]}}]}`)

	res, err := Parse(raw)
	require.NoError(t, err)
	require.Len(t, res.Tokens, 4)
	assert.Equal(t, 0.999, res.Tokens[0].Probability)
	assert.Equal(t, tokenizer.Token{Text: " b", Probability: 0.02}, res.Tokens[1])
	assert.Equal(t, tokenizer.Token{Text: " c", Probability: 0.02}, res.Tokens[2])
}

func TestParse_TieBreaksOnSmallestToken(t *testing.T) {
	raw := []byte(`{"choices":[{"text":"b","logprobs":{"tokens":["b"],"top_logprobs":[{"b":-1,"a":-1,"c":-1}]}}]}`)
	for i := 0; i < 10; i++ {
		res, err := Parse(raw)
		require.NoError(t, err)
		assert.Equal(t, "a", res.Tokens[0].Text)
	}
}

func TestParse_StructuredCappedAtMaxContentTokens(t *testing.T) {
	lp := &Logprobs{}
	for i := 0; i < 60; i++ {
		lp.Tokens = append(lp.Tokens, "t")
		lp.TopLogprobs = append(lp.TopLogprobs, map[string]float64{"t": -1})
	}
	res, err := ParseResponse(&ProviderResponse{Choices: []Choice{{Text: "t", Logprobs: lp}}})
	require.NoError(t, err)
	assert.Len(t, res.Tokens, tokenizer.MaxContentTokens+1)
}

func TestParse_MissingLogprobsMatchesSimulate(t *testing.T) {
	text := " The quick brown fox, isn't it?"
	raw := []byte(`{"choices":[{"text":" The quick brown fox, isn't it?"}]}`)

	res, err := Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, SourceSimulated, res.Source)
	assert.Equal(t, tokenizer.Simulate(text), res.Tokens)
	assert.Equal(t, text, res.Text)
}

func TestParse_LogprobsWithoutTopLogprobsIsSimulated(t *testing.T) {
	raw := []byte(`{"choices":[{"text":"ok","logprobs":{"tokens":["ok"]}}]}`)
	res, err := Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, SourceSimulated, res.Source)
	assert.Equal(t, tokenizer.Simulate("ok"), res.Tokens)
}

func TestParse_Malformed(t *testing.T) {
	cases := map[string]string{
		"not json":      `<html>`,
		"no choices":    `{"id":"x"}`,
		"empty choices": `{"choices":[]}`,
		"wrong type":    `{"choices":"nope"}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(raw))
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}

	_, err := ParseResponse(nil)
	assert.ErrorIs(t, err, ErrMalformed)
}

type stubBackend struct {
	raw []byte
	err error
}

func (s stubBackend) Complete(context.Context, proxy.Request) ([]byte, error) { return s.raw, s.err }

type countingRecorder struct {
	mu          sync.Mutex
	completions []string
	fallbacks   []string
}

func (c *countingRecorder) RecordCompletion(source string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.completions = append(c.completions, source)
}

func (c *countingRecorder) RecordFallback(reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fallbacks = append(c.fallbacks, reason)
}

type eventLog struct{ events []string }

func (e *eventLog) Send(event string, _ interface{}) { e.events = append(e.events, event) }

func TestService_Complete(t *testing.T) {
	structured := []byte(`{"choices":[{"text":"hi","logprobs":{"tokens":["hi"],"top_logprobs":[{"hi":-0.5}]}}]}`)

	t.Run("structured", func(t *testing.T) {
		rec := &countingRecorder{}
		out := NewService(stubBackend{raw: structured}, WithRecorder(rec)).
			Complete(context.Background(), proxy.Request{Prompt: "say hi"})
		assert.False(t, out.Fallback)
		assert.Equal(t, StatusOK, out.Status)
		assert.Equal(t, SourceLogprobs, out.Source)
		assert.Equal(t, []string{"logprobs"}, rec.completions)
		assert.Empty(t, rec.fallbacks)
	})

	t.Run("backend unavailable simulates prompt", func(t *testing.T) {
		rec := &countingRecorder{}
		events := &eventLog{}
		out := NewService(stubBackend{err: errors.New("down")}, WithRecorder(rec), WithNotifier(events)).
			Complete(context.Background(), proxy.Request{Prompt: "say hi"})
		assert.True(t, out.Fallback)
		assert.Equal(t, StatusUnavailable, out.Status)
		assert.Equal(t, tokenizer.Simulate("say hi"), out.Tokens)
		assert.Equal(t, []string{ReasonUnavailable}, rec.fallbacks)
		assert.Equal(t, []string{EventFallback}, events.events)
	})

	t.Run("malformed simulates prompt", func(t *testing.T) {
		out := NewService(stubBackend{raw: []byte(`{}`)}).
			Complete(context.Background(), proxy.Request{Prompt: "abc"})
		assert.True(t, out.Fallback)
		assert.Equal(t, StatusMalformed, out.Status)
		assert.Equal(t, tokenizer.Simulate("abc"), out.Tokens)
	})

	t.Run("no logprobs simulates completion text", func(t *testing.T) {
		rec := &countingRecorder{}
		out := NewService(stubBackend{raw: []byte(`{"choices":[{"text":"answer"}]}`)}, WithRecorder(rec)).
			Complete(context.Background(), proxy.Request{Prompt: "question"})
		assert.True(t, out.Fallback)
		assert.Equal(t, StatusNoLogprobs, out.Status)
		assert.Equal(t, "answer", out.Text)
		assert.Equal(t, tokenizer.Simulate("answer"), out.Tokens)
		assert.Equal(t, []string{ReasonNoLogprobs}, rec.fallbacks)
	})
}
