package proxy

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Manjussha/insightlab/internal/budget"
	"github.com/Manjussha/insightlab/internal/limiter"
)

func intp(v int) *int           { return &v }
func floatp(v float64) *float64 { return &v }

func TestRequest_Normalize(t *testing.T) {
	cases := []struct {
		name     string
		req      Request
		wantMax  int
		wantTemp float64
	}{
		{"defaults", Request{}, 128, 0.7},
		{"zero max tokens uses default", Request{MaxTokens: intp(0)}, 128, 0.7},
		{"clamp low", Request{MaxTokens: intp(5)}, 32, 0.7},
		{"clamp high", Request{MaxTokens: intp(4096)}, 256, 0.7},
		{"in range", Request{MaxTokens: intp(100), Temperature: floatp(0)}, 100, 0},
		{"negative clamps low", Request{MaxTokens: intp(-3), Temperature: floatp(1.3)}, 32, 1.3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gotMax, gotTemp := tc.req.Normalize()
			assert.Equal(t, tc.wantMax, gotMax)
			assert.InDelta(t, tc.wantTemp, gotTemp, 1e-12)
		})
	}
}

type fakeBudget struct {
	allowErr error
	recorded []budget.Usage
	checks   int
}

func (f *fakeBudget) Allow(context.Context) error { return f.allowErr }
func (f *fakeBudget) RecordUsage(_ context.Context, u budget.Usage) error {
	f.recorded = append(f.recorded, u)
	return nil
}
func (f *fakeBudget) CheckBudget(context.Context) { f.checks++ }

type fakeObserver struct{ statuses []string }

func (f *fakeObserver) ObserveUpstream(status string, _ time.Duration) {
	f.statuses = append(f.statuses, status)
}

func TestForward_Success(t *testing.T) {
	var got upstreamPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		_, _ = w.Write([]byte(`{"model":"text-davinci-003","choices":[{"text":" hi"}],"usage":{"prompt_tokens":3,"completion_tokens":2}}`))
	}))
	defer srv.Close()

	b := &fakeBudget{}
	obs := &fakeObserver{}
	f := New(Config{BaseURL: srv.URL + "/v1/", APIKey: "sk-test", Model: "text-davinci-003"}, b, obs)

	env, err := f.Forward(context.Background(), Request{Prompt: "hello", MaxTokens: intp(999)})
	require.NoError(t, err)
	assert.Equal(t, "openai", env.Provider)
	assert.JSONEq(t, `{"model":"text-davinci-003","choices":[{"text":" hi"}],"usage":{"prompt_tokens":3,"completion_tokens":2}}`, string(env.Raw))

	assert.Equal(t, "hello", got.Prompt)
	assert.Equal(t, 256, got.MaxTokens)
	assert.InDelta(t, 0.7, got.Temperature, 1e-12)
	assert.Equal(t, 5, got.Logprobs)
	assert.Equal(t, 1, got.N)
	assert.Equal(t, 1, got.BestOf)
	assert.False(t, got.Echo)

	require.Len(t, b.recorded, 1)
	assert.Equal(t, budget.Usage{Model: "text-davinci-003", PromptTokens: 3, CompletionTokens: 2}, b.recorded[0])
	assert.Equal(t, 1, b.checks)
	assert.Equal(t, []string{"2xx"}, obs.statuses)
}

func TestForward_NoAPIKey(t *testing.T) {
	f := New(Config{BaseURL: "http://127.0.0.1:0"}, nil, nil)
	_, err := f.Forward(context.Background(), Request{Prompt: "x"})
	assert.ErrorIs(t, err, ErrNoAPIKey)
}

func TestForward_BudgetExhausted(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))
	defer srv.Close()

	f := New(Config{BaseURL: srv.URL, APIKey: "k"}, &fakeBudget{allowErr: budget.ErrExhausted}, nil)
	_, err := f.Forward(context.Background(), Request{Prompt: "x"})
	assert.ErrorIs(t, err, budget.ErrExhausted)
	assert.False(t, called)
}

func TestForward_RateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"Rate limit reached"}}`))
	}))
	defer srv.Close()

	f := New(Config{BaseURL: srv.URL, APIKey: "k"}, nil, nil)
	_, err := f.Forward(context.Background(), Request{Prompt: "x"})

	var uerr *UpstreamError
	require.True(t, errors.As(err, &uerr))
	assert.Equal(t, http.StatusTooManyRequests, uerr.StatusCode)

	var rl *limiter.ErrRateLimit
	assert.True(t, errors.As(err, &rl))
}

func TestForward_ServerErrorWithoutLimitSignal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Incorrect API key"}}`))
	}))
	defer srv.Close()

	f := New(Config{BaseURL: srv.URL, APIKey: "k"}, nil, nil)
	_, err := f.Forward(context.Background(), Request{Prompt: "x"})

	var uerr *UpstreamError
	require.True(t, errors.As(err, &uerr))
	assert.Equal(t, http.StatusUnauthorized, uerr.StatusCode)
	assert.Nil(t, uerr.Unwrap())
	assert.Contains(t, err.Error(), "status 401")
}

func TestForward_InvalidJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>gateway</html>`))
	}))
	defer srv.Close()

	f := New(Config{BaseURL: srv.URL, APIKey: "k"}, nil, nil)
	_, err := f.Forward(context.Background(), Request{Prompt: "x"})
	var uerr *UpstreamError
	assert.True(t, errors.As(err, &uerr))
}
