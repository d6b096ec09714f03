package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/Manjussha/insightlab/internal/budget"
	"github.com/Manjussha/insightlab/internal/proxy"
)

// Complete handles POST /api/v1/complete.
// It always answers 200: backend failures degrade to a simulated outcome.
func (h *Handler) Complete(w http.ResponseWriter, r *http.Request) {
	if h.completer == nil {
		fail(w, http.StatusServiceUnavailable, "completion service not initialized")
		return
	}
	var req proxy.Request
	if err := decode(r, &req); err != nil {
		fail(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	ok(w, h.completer.Complete(r.Context(), req))
}

type proxyError struct {
	Error string `json:"error"`
}

// Proxy handles POST /api/openai-proxy and its legacy path.
// It answers {provider, raw} on success and {error} otherwise, not the
// {success, data} envelope.
func (h *Handler) Proxy(w http.ResponseWriter, r *http.Request) {
	if h.forwarder == nil {
		writeJSON(w, http.StatusServiceUnavailable, proxyError{Error: "proxy not initialized"})
		return
	}
	var req proxy.Request
	if err := decode(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, proxyError{Error: "invalid JSON"})
		return
	}

	env, err := h.forwarder.Forward(r.Context(), req)
	if err != nil {
		code := proxyStatus(err)
		log.Printf("handlers.Proxy: %d: %v", code, err)
		writeJSON(w, code, proxyError{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, env)
}

// proxyStatus maps a Forward error to the HTTP status the proxy answers.
func proxyStatus(err error) int {
	var uerr *proxy.UpstreamError
	switch {
	case errors.Is(err, proxy.ErrNoAPIKey):
		return http.StatusInternalServerError
	case errors.Is(err, budget.ErrExhausted):
		return http.StatusTooManyRequests
	case errors.As(err, &uerr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

type backendHealth struct {
	Name  string `json:"name"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// Healthz handles GET /healthz. It reports the health of every registered
// completion backend but answers 200 as long as the process is serving.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	health := []backendHealth{}
	if h.backends != nil {
		for _, name := range h.backends.List() {
			bh := backendHealth{Name: name, OK: true}
			if err := h.backends.HealthCheck(r.Context(), name); err != nil {
				bh.OK = false
				bh.Error = err.Error()
			}
			health = append(health, bh)
		}
	}
	ok(w, map[string]interface{}{"status": "ok", "backends": health})
}
