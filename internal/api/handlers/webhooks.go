package handlers

import (
	"net/http"
	"strconv"

	"github.com/Manjussha/insightlab/internal/db"
)

const webhookColumns = `id, name, url, events, enabled, last_status, last_fired, created_at`

type webhookRequest struct {
	Name    string `json:"name"`
	URL     string `json:"url"`
	Events  string `json:"events"`
	Enabled bool   `json:"enabled"`
}

func scanWebhook(s interface{ Scan(...interface{}) error }, wh *db.Webhook) error {
	return s.Scan(&wh.ID, &wh.Name, &wh.URL, &wh.Events,
		&wh.Enabled, &wh.LastStatus, &wh.LastFired, &wh.CreatedAt)
}

// ListWebhooks handles GET /api/v1/webhooks.
func (h *Handler) ListWebhooks(w http.ResponseWriter, r *http.Request) {
	rows, err := h.db.QueryContext(r.Context(), `SELECT `+webhookColumns+` FROM webhooks ORDER BY id`)
	if err != nil {
		fail(w, http.StatusInternalServerError, "query: "+err.Error())
		return
	}
	defer rows.Close()

	hooks := []db.Webhook{}
	for rows.Next() {
		var wh db.Webhook
		if err := scanWebhook(rows, &wh); err != nil {
			continue
		}
		hooks = append(hooks, wh)
	}
	ok(w, hooks)
}

// CreateWebhook handles POST /api/v1/webhooks.
// events is a comma list (e.g. "budget.zone,completion.fallback"); empty matches all.
func (h *Handler) CreateWebhook(w http.ResponseWriter, r *http.Request) {
	var req webhookRequest
	if err := decode(r, &req); err != nil {
		fail(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Name == "" || req.URL == "" {
		fail(w, http.StatusBadRequest, "name and url are required")
		return
	}
	res, err := h.db.ExecContext(r.Context(), `
		INSERT INTO webhooks (name, url, events, enabled) VALUES (?,?,?,?)`,
		req.Name, req.URL, req.Events, req.Enabled,
	)
	if err != nil {
		fail(w, http.StatusInternalServerError, "insert: "+err.Error())
		return
	}
	id, _ := res.LastInsertId()
	ok(w, map[string]int64{"id": id})
}

// GetWebhook handles GET /api/v1/webhooks/{id}.
func (h *Handler) GetWebhook(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(pathID(r, "id"))
	if err != nil {
		fail(w, http.StatusBadRequest, "invalid id")
		return
	}
	var wh db.Webhook
	row := h.db.QueryRowContext(r.Context(), `SELECT `+webhookColumns+` FROM webhooks WHERE id=?`, id)
	if err := scanWebhook(row, &wh); err != nil {
		fail(w, http.StatusNotFound, "webhook not found")
		return
	}
	ok(w, wh)
}

// UpdateWebhook handles PUT /api/v1/webhooks/{id}.
func (h *Handler) UpdateWebhook(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(pathID(r, "id"))
	if err != nil {
		fail(w, http.StatusBadRequest, "invalid id")
		return
	}
	var req webhookRequest
	if err := decode(r, &req); err != nil {
		fail(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Name == "" || req.URL == "" {
		fail(w, http.StatusBadRequest, "name and url are required")
		return
	}
	res, err := h.db.ExecContext(r.Context(), `
		UPDATE webhooks SET name=?, url=?, events=?, enabled=? WHERE id=?`,
		req.Name, req.URL, req.Events, req.Enabled, id)
	if err != nil {
		fail(w, http.StatusInternalServerError, "update: "+err.Error())
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		fail(w, http.StatusNotFound, "webhook not found")
		return
	}
	ok(w, map[string]string{"message": "updated"})
}

// DeleteWebhook handles DELETE /api/v1/webhooks/{id}.
func (h *Handler) DeleteWebhook(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(pathID(r, "id"))
	if err != nil {
		fail(w, http.StatusBadRequest, "invalid id")
		return
	}
	if _, err := h.db.ExecContext(r.Context(), `DELETE FROM webhooks WHERE id=?`, id); err != nil {
		fail(w, http.StatusInternalServerError, "delete: "+err.Error())
		return
	}
	ok(w, map[string]string{"message": "deleted"})
}

// TestWebhook handles POST /api/v1/webhooks/{id}/test.
func (h *Handler) TestWebhook(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(pathID(r, "id"))
	if err != nil {
		fail(w, http.StatusBadRequest, "invalid id")
		return
	}
	if h.webhook == nil {
		fail(w, http.StatusServiceUnavailable, "webhook dispatcher not initialized")
		return
	}
	if err := h.webhook.TestWebhook(r.Context(), id); err != nil {
		fail(w, http.StatusBadGateway, "test failed: "+err.Error())
		return
	}
	ok(w, map[string]string{"message": "test delivered"})
}
