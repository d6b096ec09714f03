package api

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Manjussha/insightlab/internal/auth"
	"github.com/Manjussha/insightlab/internal/backend"
	"github.com/Manjussha/insightlab/internal/budget"
	"github.com/Manjussha/insightlab/internal/completion"
	"github.com/Manjussha/insightlab/internal/contextwin"
	"github.com/Manjussha/insightlab/internal/db"
	"github.com/Manjussha/insightlab/internal/metrics"
	"github.com/Manjussha/insightlab/internal/pricing"
	"github.com/Manjussha/insightlab/internal/proxy"
	"github.com/Manjussha/insightlab/internal/tokenizer"
	"github.com/Manjussha/insightlab/internal/webhook"
	"github.com/Manjussha/insightlab/internal/ws"
)

const adminToken = "s3cret-admin"

const upstreamBody = `{"model":"text-davinci-003","choices":[{"text":" Hello","logprobs":{
	"tokens":[" Hello"],"top_logprobs":[{" Hello":-0.1," Hi":-2.3}]}}],
	"usage":{"prompt_tokens":4,"completion_tokens":1}}`

type testEnv struct {
	srv      *httptest.Server
	db       *db.DB
	upstream *httptest.Server
	status   int
}

func newTestEnv(t *testing.T, apiKey string) *testEnv {
	t.Helper()
	env := &testEnv{status: http.StatusOK}
	env.upstream = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(env.status)
		_, _ = w.Write([]byte(upstreamBody))
	}))
	t.Cleanup(env.upstream.Close)

	database, err := db.New(filepath.Join(t.TempDir(), "api_test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	require.NoError(t, database.Migrate(1000))
	env.db = database

	collector := metrics.NewCollector(prometheus.NewRegistry())
	governor := budget.NewGovernor(database, nil)
	fwd := proxy.New(proxy.Config{BaseURL: env.upstream.URL, APIKey: apiKey, Model: "text-davinci-003"}, governor, collector)
	registry := backend.NewRegistry()
	registry.Register(backend.NewLocalBackend(fwd))
	admin, err := auth.NewAdmin(adminToken)
	require.NoError(t, err)

	mux := http.NewServeMux()
	SetupRoutes(mux, &Deps{
		DB:        database,
		Governor:  governor,
		Forwarder: fwd,
		Backends:  registry,
		Completer: completion.NewService(registry, completion.WithRecorder(collector), completion.WithLogWriter(database)),
		Catalog:   pricing.NewCatalog(pricing.DefaultTable()),
		Sessions:  contextwin.NewStore(),
		Hub:       ws.NewHub(),
		Streamer:  ws.NewStreamer(),
		Webhook:   webhook.New(database),
		Metrics:   collector,
		Admin:     admin,
	})
	env.srv = httptest.NewServer(Middleware(mux, collector))
	t.Cleanup(env.srv.Close)
	return env
}

func (e *testEnv) do(t *testing.T, method, path, body string, admin bool) (int, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, e.srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	if admin {
		req.Header.Set("Authorization", "Bearer "+adminToken)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(resp.Body)
	return resp.StatusCode, buf.Bytes()
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func decodeData(t *testing.T, body []byte, v interface{}) {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(body, &env))
	require.True(t, env.Success, string(body))
	require.NoError(t, json.Unmarshal(env.Data, v))
}

func TestTokenize(t *testing.T) {
	e := newTestEnv(t, "k")
	code, body := e.do(t, http.MethodPost, "/api/v1/tokenize", `{"text":"don't stop!"}`, false)
	require.Equal(t, http.StatusOK, code)
	var got struct{ Tokens []string }
	decodeData(t, body, &got)
	assert.Equal(t, []string{"don't", "stop", "!"}, got.Tokens)
}

func TestSimulate_ShareLinkReproducesResult(t *testing.T) {
	e := newTestEnv(t, "k")

	code, body := e.do(t, http.MethodPost, "/api/v1/simulate", `{"text":"Hello world"}`, false)
	require.Equal(t, http.StatusOK, code)
	var posted struct {
		Seed   int64
		Tokens tokenizer.Sequence
	}
	decodeData(t, body, &posted)
	assert.Equal(t, tokenizer.Seed("Hello world"), posted.Seed)
	assert.Equal(t, tokenizer.Simulate("Hello world"), posted.Tokens)

	code, body = e.do(t, http.MethodGet, "/api/v1/share?p=Hello+world&base=https://lab.example/", "", false)
	require.Equal(t, http.StatusOK, code)
	var link struct{ URL string }
	decodeData(t, body, &link)
	assert.Equal(t, "https://lab.example/?p=Hello+world", link.URL)

	code, body = e.do(t, http.MethodGet, "/api/v1/simulate?p=Hello+world", "", false)
	require.Equal(t, http.StatusOK, code)
	var shared struct {
		Seed   int64
		Tokens tokenizer.Sequence
	}
	decodeData(t, body, &shared)
	assert.Equal(t, posted, shared)
}

func TestComplete(t *testing.T) {
	t.Run("structured", func(t *testing.T) {
		e := newTestEnv(t, "k")
		code, body := e.do(t, http.MethodPost, "/api/v1/complete", `{"prompt":"Say hi"}`, false)
		require.Equal(t, http.StatusOK, code)
		var out completion.Outcome
		decodeData(t, body, &out)
		assert.Equal(t, completion.SourceLogprobs, out.Source)
		assert.False(t, out.Fallback)
		require.Len(t, out.Tokens, 2)
		assert.Equal(t, " Hello", out.Tokens[0].Text)
	})

	t.Run("no key falls back to prompt simulation", func(t *testing.T) {
		e := newTestEnv(t, "")
		code, body := e.do(t, http.MethodPost, "/api/v1/complete", `{"prompt":"Say hi"}`, false)
		require.Equal(t, http.StatusOK, code)
		var out completion.Outcome
		decodeData(t, body, &out)
		assert.True(t, out.Fallback)
		assert.Equal(t, completion.StatusUnavailable, out.Status)
		assert.Equal(t, tokenizer.Simulate("Say hi"), out.Tokens)
	})
}

func TestProxy(t *testing.T) {
	t.Run("success on both paths", func(t *testing.T) {
		e := newTestEnv(t, "k")
		for _, path := range []string{"/api/openai-proxy", "/.netlify/functions/openai-proxy"} {
			code, body := e.do(t, http.MethodPost, path, `{"prompt":"x","max_tokens":5}`, false)
			require.Equal(t, http.StatusOK, code)
			var got proxy.Envelope
			require.NoError(t, json.Unmarshal(body, &got))
			assert.Equal(t, "openai", got.Provider)
			assert.JSONEq(t, upstreamBody, string(got.Raw))
		}
	})

	t.Run("missing key", func(t *testing.T) {
		e := newTestEnv(t, "")
		code, body := e.do(t, http.MethodPost, "/api/openai-proxy", `{"prompt":"x"}`, false)
		assert.Equal(t, http.StatusInternalServerError, code)
		assert.JSONEq(t, `{"error":"OPENAI_API_KEY not configured"}`, string(body))
	})

	t.Run("upstream failure", func(t *testing.T) {
		e := newTestEnv(t, "k")
		e.status = http.StatusInternalServerError
		code, body := e.do(t, http.MethodPost, "/api/openai-proxy", `{"prompt":"x"}`, false)
		assert.Equal(t, http.StatusBadGateway, code)
		assert.Contains(t, string(body), `"error"`)
	})

	t.Run("budget exhausted", func(t *testing.T) {
		e := newTestEnv(t, "k")
		require.NoError(t, e.db.SetBudget(context.Background(), db.TokenBudget{DailyLimit: 3, YellowPct: 60, OrangePct: 80, RedPct: 90}))
		code, _ := e.do(t, http.MethodPost, "/api/openai-proxy", `{"prompt":"x"}`, false)
		require.Equal(t, http.StatusOK, code)
		code, _ = e.do(t, http.MethodPost, "/api/openai-proxy", `{"prompt":"x"}`, false)
		assert.Equal(t, http.StatusTooManyRequests, code)
	})

	t.Run("invalid json", func(t *testing.T) {
		e := newTestEnv(t, "k")
		code, _ := e.do(t, http.MethodPost, "/api/openai-proxy", `{`, false)
		assert.Equal(t, http.StatusBadRequest, code)
	})
}

func TestAnalyzeAndModels(t *testing.T) {
	e := newTestEnv(t, "k")

	code, body := e.do(t, http.MethodPost, "/api/v1/analyze", `{"text":"Write a function in Python","model":"gpt-4"}`, false)
	require.Equal(t, http.StatusOK, code)
	var rep struct {
		Model  string
		Tokens int
	}
	decodeData(t, body, &rep)
	assert.Equal(t, "gpt-4", rep.Model)
	assert.Equal(t, tokenizer.EstimateTokens("Write a function in Python"), rep.Tokens)

	code, _ = e.do(t, http.MethodPost, "/api/v1/analyze", `{"text":"x","model":"nope"}`, false)
	assert.Equal(t, http.StatusBadRequest, code)

	code, body = e.do(t, http.MethodGet, "/api/v1/models", "", false)
	require.Equal(t, http.StatusOK, code)
	var table pricing.Table
	decodeData(t, body, &table)
	assert.Contains(t, table.Models, "claude")

	code, _ = e.do(t, http.MethodPost, "/api/v1/bias", `{"pattern":""}`, false)
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = e.do(t, http.MethodGet, "/api/v1/pipeline", "", false)
	assert.Equal(t, http.StatusOK, code)
}

func TestContextLifecycle(t *testing.T) {
	e := newTestEnv(t, "k")

	code, body := e.do(t, http.MethodPost, "/api/v1/context", "", false)
	require.Equal(t, http.StatusOK, code)
	var snap contextwin.Snapshot
	decodeData(t, body, &snap)
	require.NotEmpty(t, snap.ID)
	base := "/api/v1/context/" + snap.ID

	code, body = e.do(t, http.MethodPost, base+"/messages", `{"type":"assistant"}`, false)
	require.Equal(t, http.StatusOK, code)
	decodeData(t, body, &snap)
	require.Len(t, snap.Messages, 1)
	assert.GreaterOrEqual(t, snap.Usage.Used, 150)

	code, _ = e.do(t, http.MethodPost, base+"/messages", `{"type":"robot"}`, false)
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = e.do(t, http.MethodDelete, base+"/messages/7", "", false)
	assert.Equal(t, http.StatusBadRequest, code)

	code, body = e.do(t, http.MethodDelete, base+"/messages/0", "", false)
	require.Equal(t, http.StatusOK, code)
	decodeData(t, body, &snap)
	assert.Empty(t, snap.Messages)

	code, _ = e.do(t, http.MethodDelete, base, "", false)
	require.Equal(t, http.StatusOK, code)
	code, _ = e.do(t, http.MethodGet, base, "", false)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestAdminRoutes(t *testing.T) {
	e := newTestEnv(t, "k")

	code, _ := e.do(t, http.MethodGet, "/api/v1/usage", "", false)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = e.do(t, http.MethodPost, "/api/openai-proxy", `{"prompt":"x"}`, false)
	require.Equal(t, http.StatusOK, code)

	code, body := e.do(t, http.MethodGet, "/api/v1/usage?period=daily", "", true)
	require.Equal(t, http.StatusOK, code)
	var usage struct {
		Rows []struct {
			Model       string `json:"model"`
			TotalTokens int    `json:"total_tokens"`
		}
	}
	decodeData(t, body, &usage)
	require.Len(t, usage.Rows, 1)
	assert.Equal(t, "text-davinci-003", usage.Rows[0].Model)
	assert.Equal(t, 5, usage.Rows[0].TotalTokens)

	code, _ = e.do(t, http.MethodPut, "/api/v1/budget", `{"daily_limit":10,"yellow_pct":90,"orange_pct":80,"red_pct":95}`, true)
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = e.do(t, http.MethodPut, "/api/v1/budget", `{"daily_limit":10,"yellow_pct":50,"orange_pct":70,"red_pct":95}`, true)
	require.Equal(t, http.StatusOK, code)

	code, body = e.do(t, http.MethodGet, "/api/v1/budget", "", true)
	require.Equal(t, http.StatusOK, code)
	var st struct {
		Used       int    `json:"used"`
		DailyLimit int    `json:"daily_limit"`
		Zone       string `json:"zone"`
	}
	decodeData(t, body, &st)
	assert.Equal(t, 5, st.Used)
	assert.Equal(t, 10, st.DailyLimit)
	assert.Equal(t, "YELLOW", st.Zone)
}

func TestWebhookRoutes(t *testing.T) {
	e := newTestEnv(t, "k")

	code, body := e.do(t, http.MethodPost, "/api/v1/webhooks", `{"name":"ops","url":"http://127.0.0.1:1/hook","events":"budget.zone","enabled":true}`, true)
	require.Equal(t, http.StatusOK, code)
	var created struct{ ID int64 }
	decodeData(t, body, &created)

	code, body = e.do(t, http.MethodGet, "/api/v1/webhooks", "", true)
	require.Equal(t, http.StatusOK, code)
	var hooks []db.Webhook
	decodeData(t, body, &hooks)
	require.Len(t, hooks, 1)
	assert.Equal(t, "ops", hooks[0].Name)
	assert.True(t, hooks[0].Enabled)

	path := "/api/v1/webhooks/" + strconv.FormatInt(created.ID, 10)
	code, _ = e.do(t, http.MethodPut, path, `{"name":"ops2","url":"http://127.0.0.1:1/hook"}`, true)
	require.Equal(t, http.StatusOK, code)
	code, _ = e.do(t, http.MethodPut, "/api/v1/webhooks/999", `{"name":"x","url":"http://x"}`, true)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = e.do(t, http.MethodDelete, path, "", true)
	require.Equal(t, http.StatusOK, code)
	code, _ = e.do(t, http.MethodGet, path, "", true)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestHealthzAndMetrics(t *testing.T) {
	e := newTestEnv(t, "")

	code, body := e.do(t, http.MethodGet, "/healthz", "", false)
	require.Equal(t, http.StatusOK, code)
	var health struct {
		Backends []struct {
			Name string
			OK   bool
		}
	}
	decodeData(t, body, &health)
	require.Len(t, health.Backends, 1)
	assert.Equal(t, "local", health.Backends[0].Name)
	assert.False(t, health.Backends[0].OK)

	code, body = e.do(t, http.MethodGet, "/metrics", "", false)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(body), "insightlab_http_requests_total")
}
