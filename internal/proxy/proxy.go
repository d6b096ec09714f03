// Package proxy forwards completion requests to the upstream provider.
// It is a thin pass-through: one call, no retries, the raw upstream body is
// returned to the caller untouched.
package proxy

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/Manjussha/insightlab/internal/budget"
	"github.com/Manjussha/insightlab/internal/limiter"
)

// Provider is the name reported in every envelope.
const Provider = "openai"

const (
	DefaultMaxTokens   = 128
	MinMaxTokens       = 32
	MaxMaxTokens       = 256
	DefaultTemperature = 0.7
	logprobCandidates  = 5
	maxErrorBody       = 4096
)

// Request is the body accepted by the proxy endpoint.
type Request struct {
	Prompt      string   `json:"prompt"`
	MaxTokens   *int     `json:"max_tokens,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
}

// Normalize returns the effective max_tokens and temperature.
// max_tokens defaults to 128 (also when zero) and is clamped to [32, 256];
// temperature defaults to 0.7 only when absent.
func (r Request) Normalize() (maxTokens int, temperature float64) {
	maxTokens = DefaultMaxTokens
	if r.MaxTokens != nil && *r.MaxTokens != 0 {
		maxTokens = *r.MaxTokens
	}
	maxTokens = min(MaxMaxTokens, max(MinMaxTokens, maxTokens))

	temperature = DefaultTemperature
	if r.Temperature != nil {
		temperature = *r.Temperature
	}
	return maxTokens, temperature
}

// Envelope is the proxy's success answer.
type Envelope struct {
	Provider string          `json:"provider"`
	Raw      json.RawMessage `json:"raw"`
}

// upstreamPayload is the legacy completions request body.
type upstreamPayload struct {
	Model       string  `json:"model"`
	Prompt      string  `json:"prompt"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
	Echo        bool    `json:"echo"`
	Logprobs    int     `json:"logprobs"`
	N           int     `json:"n"`
	BestOf      int     `json:"best_of"`
}

// Budget gates and accounts upstream usage.
type Budget interface {
	Allow(ctx context.Context) error
	RecordUsage(ctx context.Context, u budget.Usage) error
	CheckBudget(ctx context.Context)
}

// Observer receives upstream call outcomes (metrics).
type Observer interface {
	ObserveUpstream(status string, d time.Duration)
}

// Config holds upstream connection settings.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Forwarder sends completion requests upstream.
type Forwarder struct {
	cfg      Config
	client   *http.Client
	detector *limiter.Detector
	budget   Budget
	observer Observer
}

// New creates a Forwarder. budget and observer may be nil.
func New(cfg Config, b Budget, obs Observer) *Forwarder {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Forwarder{
		cfg:      cfg,
		client:   &http.Client{Timeout: cfg.Timeout},
		detector: limiter.New(Provider),
		budget:   b,
		observer: obs,
	}
}

// Ready reports whether the Forwarder can reach upstream at all.
func (f *Forwarder) Ready() error {
	if f.cfg.APIKey == "" {
		return ErrNoAPIKey
	}
	return nil
}

// Forward posts req upstream and wraps the raw answer in an Envelope.
func (f *Forwarder) Forward(ctx context.Context, req Request) (*Envelope, error) {
	if f.cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	if f.budget != nil {
		if err := f.budget.Allow(ctx); err != nil {
			return nil, fmt.Errorf("proxy.Forward: %w", err)
		}
	}

	maxTokens, temperature := req.Normalize()
	body, err := json.Marshal(upstreamPayload{
		Model:       f.cfg.Model,
		Prompt:      req.Prompt,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		Echo:        false,
		Logprobs:    logprobCandidates,
		N:           1,
		BestOf:      1,
	})
	if err != nil {
		return nil, fmt.Errorf("proxy.Forward: marshal: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, f.cfg.BaseURL+"/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("proxy.Forward: build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+f.cfg.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := f.client.Do(httpReq)
	if err != nil {
		f.observe("error", start)
		return nil, &UpstreamError{Provider: Provider, Message: "request failed", Cause: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		f.observe("error", start)
		return nil, &UpstreamError{Provider: Provider, StatusCode: resp.StatusCode, Message: "read body", Cause: err}
	}
	f.observe(fmt.Sprintf("%dxx", resp.StatusCode/100), start)

	if resp.StatusCode >= 400 {
		msg := string(raw)
		if len(msg) > maxErrorBody {
			msg = msg[:maxErrorBody]
		}
		uerr := &UpstreamError{Provider: Provider, StatusCode: resp.StatusCode, Message: msg}
		if f.detector.DetectLimit(resp.StatusCode, msg) {
			uerr.Cause = &limiter.ErrRateLimit{Provider: Provider, Line: msg}
		}
		return nil, uerr
	}
	if !json.Valid(raw) {
		return nil, &UpstreamError{Provider: Provider, StatusCode: resp.StatusCode, Message: "upstream returned invalid JSON"}
	}

	f.recordUsage(ctx, raw)
	return &Envelope{Provider: Provider, Raw: raw}, nil
}

func (f *Forwarder) observe(status string, start time.Time) {
	if f.observer != nil {
		f.observer.ObserveUpstream(status, time.Since(start))
	}
}

// recordUsage books the upstream "usage" object, when present.
func (f *Forwarder) recordUsage(ctx context.Context, raw []byte) {
	if f.budget == nil {
		return
	}
	var body struct {
		Model string `json:"model"`
		Usage *struct {
			PromptTokens     int `json:"prompt_tokens"`
			CompletionTokens int `json:"completion_tokens"`
		} `json:"usage"`
	}
	if err := json.Unmarshal(raw, &body); err != nil || body.Usage == nil {
		return
	}
	model := body.Model
	if model == "" {
		model = f.cfg.Model
	}
	u := budget.Usage{Model: model, PromptTokens: body.Usage.PromptTokens, CompletionTokens: body.Usage.CompletionTokens}
	if err := f.budget.RecordUsage(ctx, u); err != nil {
		// Accounting failures never fail the proxied call.
		log.Printf("proxy.recordUsage: %v", err)
		return
	}
	f.budget.CheckBudget(ctx)
}
