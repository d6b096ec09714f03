package handlers

import (
	"net/http"
	"time"
)

type usageRow struct {
	Date             string `json:"date"`
	Model            string `json:"model"`
	Calls            int    `json:"calls"`
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
	TotalTokens      int    `json:"total_tokens"`
}

// GetUsage handles GET /api/v1/usage.
// Query params: period=daily|weekly|monthly, model.
func (h *Handler) GetUsage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()
	period := q.Get("period")
	if period == "" {
		period = "daily"
	}

	var since string
	now := time.Now()
	switch period {
	case "weekly":
		since = now.AddDate(0, 0, -7).Format("2006-01-02")
	case "monthly":
		since = now.AddDate(0, -1, 0).Format("2006-01-02")
	case "daily":
		since = now.Format("2006-01-02")
	default:
		fail(w, http.StatusBadRequest, "period must be daily, weekly or monthly")
		return
	}

	query := `SELECT date, model, COUNT(*),
		SUM(prompt_tokens), SUM(completion_tokens), SUM(prompt_tokens+completion_tokens)
		FROM token_usage WHERE date >= ?`
	args := []interface{}{since}

	if v := q.Get("model"); v != "" {
		query += " AND model=?"
		args = append(args, v)
	}
	query += " GROUP BY date, model ORDER BY date DESC, model"

	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		fail(w, http.StatusInternalServerError, "query: "+err.Error())
		return
	}
	defer rows.Close()

	results := []usageRow{}
	for rows.Next() {
		var u usageRow
		if err := rows.Scan(&u.Date, &u.Model, &u.Calls,
			&u.PromptTokens, &u.CompletionTokens, &u.TotalTokens); err != nil {
			continue
		}
		results = append(results, u)
	}
	ok(w, map[string]interface{}{
		"period": period,
		"since":  since,
		"rows":   results,
	})
}
