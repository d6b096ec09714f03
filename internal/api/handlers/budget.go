package handlers

import (
	"net/http"

	"github.com/Manjussha/insightlab/internal/budget"
	"github.com/Manjussha/insightlab/internal/db"
)

type budgetView struct {
	budget.Status
	Thresholds db.TokenBudget `json:"thresholds"`
}

// GetBudget handles GET /api/v1/budget.
func (h *Handler) GetBudget(w http.ResponseWriter, r *http.Request) {
	if h.governor == nil {
		fail(w, http.StatusServiceUnavailable, "budget governor not initialized")
		return
	}
	st, err := h.governor.Status(r.Context())
	if err != nil {
		fail(w, http.StatusInternalServerError, err.Error())
		return
	}
	b, err := h.db.GetBudget(r.Context())
	if err != nil {
		fail(w, http.StatusInternalServerError, err.Error())
		return
	}
	ok(w, budgetView{Status: st, Thresholds: b})
}

// UpdateBudget handles PUT /api/v1/budget.
// Zero daily_limit disables the budget; thresholds must ascend within 1..100.
func (h *Handler) UpdateBudget(w http.ResponseWriter, r *http.Request) {
	var req db.TokenBudget
	if err := decode(r, &req); err != nil {
		fail(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.DailyLimit < 0 {
		fail(w, http.StatusBadRequest, "daily_limit must not be negative")
		return
	}
	if !(0 < req.YellowPct && req.YellowPct < req.OrangePct &&
		req.OrangePct < req.RedPct && req.RedPct <= 100) {
		fail(w, http.StatusBadRequest, "thresholds must satisfy 0 < yellow < orange < red <= 100")
		return
	}
	if err := h.db.SetBudget(r.Context(), req); err != nil {
		fail(w, http.StatusInternalServerError, err.Error())
		return
	}
	if h.governor != nil {
		h.governor.CheckBudget(r.Context())
	}
	ok(w, req)
}
