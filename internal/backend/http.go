package backend

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	json "github.com/goccy/go-json"

	"github.com/Manjussha/insightlab/internal/proxy"
)

// HTTPBackend calls a proxy endpoint that answers {provider, raw}.
type HTTPBackend struct {
	url    string
	client *http.Client
}

// NewHTTPBackend creates an HTTPBackend posting to url.
func NewHTTPBackend(url string, timeout time.Duration) *HTTPBackend {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPBackend{url: url, client: &http.Client{Timeout: timeout}}
}

func (b *HTTPBackend) Name() string { return b.url }

// Complete posts req and unwraps the raw upstream body from the envelope.
func (b *HTTPBackend) Complete(ctx context.Context, req proxy.Request) ([]byte, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("backend.HTTPBackend.Complete: marshal: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("backend.HTTPBackend.Complete: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("backend.HTTPBackend.Complete: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("backend.HTTPBackend.Complete: read: %w", err)
	}

	var env struct {
		Provider string          `json:"provider"`
		Raw      json.RawMessage `json:"raw"`
		Error    string          `json:"error"`
	}
	_ = json.Unmarshal(data, &env)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if env.Error != "" {
			return nil, fmt.Errorf("backend.HTTPBackend.Complete: status %d: %s", resp.StatusCode, env.Error)
		}
		return nil, fmt.Errorf("backend.HTTPBackend.Complete: status %d", resp.StatusCode)
	}
	if len(env.Raw) == 0 {
		return nil, fmt.Errorf("backend.HTTPBackend.Complete: response has no raw body")
	}
	return env.Raw, nil
}

// HealthCheck treats any HTTP answer as reachable.
func (b *HTTPBackend) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodOptions, b.url, nil)
	if err != nil {
		return fmt.Errorf("backend.HTTPBackend.HealthCheck: %w", err)
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("backend.HTTPBackend.HealthCheck: %w", err)
	}
	resp.Body.Close()
	return nil
}
