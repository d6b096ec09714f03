package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_Counters(t *testing.T) {
	c := NewCollector(prometheus.NewRegistry())

	c.RecordSimulation()
	c.RecordSimulation()
	c.RecordCompletion("logprobs")
	c.RecordFallback("unavailable")
	c.RecordFallback("unavailable")
	c.ObserveUpstream("2xx", 300*time.Millisecond)
	c.RecordHTTP(http.MethodGet, 200)
	c.SetSessions(3)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.simulations))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.completions.WithLabelValues("logprobs")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.fallbacks.WithLabelValues("unavailable")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.upstreamRequests.WithLabelValues("2xx")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.httpRequests.WithLabelValues("GET", "200")))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.sessions))
	assert.Equal(t, 1, testutil.CollectAndCount(c.upstreamLatency))
}

func TestCollector_Handler(t *testing.T) {
	c := NewCollector(nil)
	c.RecordSimulation()

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, _ := io.ReadAll(rec.Body)
	assert.Contains(t, string(body), "insightlab_simulations_total 1")
	assert.Contains(t, string(body), "go_goroutines")
}
