package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/Manjussha/insightlab/internal/insight"
	"github.com/Manjussha/insightlab/internal/pricing"
)

// DefaultModel prices analyses that name no model.
const DefaultModel = "gpt-4"

// Analyze handles POST /api/v1/analyze.
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	if h.catalog == nil {
		fail(w, http.StatusServiceUnavailable, "pricing catalog not initialized")
		return
	}
	var req struct {
		Text  string `json:"text"`
		Model string `json:"model"`
	}
	if err := decode(r, &req); err != nil {
		fail(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Model == "" {
		req.Model = DefaultModel
	}
	rep, err := insight.Measure(req.Text, req.Model, h.catalog)
	if errors.Is(err, pricing.ErrUnknownModel) {
		fail(w, http.StatusBadRequest, "unknown model: "+req.Model)
		return
	}
	if err != nil {
		fail(w, http.StatusInternalServerError, err.Error())
		return
	}
	ok(w, rep)
}

// ListModels handles GET /api/v1/models.
func (h *Handler) ListModels(w http.ResponseWriter, r *http.Request) {
	if h.catalog == nil {
		fail(w, http.StatusServiceUnavailable, "pricing catalog not initialized")
		return
	}
	ok(w, h.catalog.Table())
}

// Bias handles POST /api/v1/bias.
func (h *Handler) Bias(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Pattern string `json:"pattern"`
	}
	if err := decode(r, &req); err != nil {
		fail(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if strings.TrimSpace(req.Pattern) == "" {
		fail(w, http.StatusBadRequest, "pattern is required")
		return
	}
	ok(w, insight.BiasCompletions(req.Pattern))
}

// Pipeline handles GET /api/v1/pipeline.
func (h *Handler) Pipeline(w http.ResponseWriter, r *http.Request) {
	ok(w, insight.Pipeline())
}
