package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/Manjussha/insightlab/internal/contextwin"
)

// CreateContext handles POST /api/v1/context.
func (h *Handler) CreateContext(w http.ResponseWriter, r *http.Request) {
	if h.sessions == nil {
		fail(w, http.StatusServiceUnavailable, "context store not initialized")
		return
	}
	snap := h.sessions.Create()
	h.trackSessions()
	ok(w, snap)
}

// GetContext handles GET /api/v1/context/{id}.
func (h *Handler) GetContext(w http.ResponseWriter, r *http.Request) {
	if h.sessions == nil {
		fail(w, http.StatusServiceUnavailable, "context store not initialized")
		return
	}
	snap, err := h.sessions.Get(pathID(r, "id"))
	h.contextResult(w, snap, err)
}

// DeleteContext handles DELETE /api/v1/context/{id}.
func (h *Handler) DeleteContext(w http.ResponseWriter, r *http.Request) {
	if h.sessions == nil {
		fail(w, http.StatusServiceUnavailable, "context store not initialized")
		return
	}
	if err := h.sessions.Delete(pathID(r, "id")); err != nil {
		fail(w, http.StatusNotFound, err.Error())
		return
	}
	h.trackSessions()
	ok(w, map[string]string{"message": "deleted"})
}

// AddMessage handles POST /api/v1/context/{id}/messages.
func (h *Handler) AddMessage(w http.ResponseWriter, r *http.Request) {
	if h.sessions == nil {
		fail(w, http.StatusServiceUnavailable, "context store not initialized")
		return
	}
	var req struct {
		Type contextwin.Kind `json:"type"`
	}
	if err := decode(r, &req); err != nil {
		fail(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	snap, err := h.sessions.Add(pathID(r, "id"), req.Type)
	h.contextResult(w, snap, err)
}

// RemoveMessage handles DELETE /api/v1/context/{id}/messages/{index}.
func (h *Handler) RemoveMessage(w http.ResponseWriter, r *http.Request) {
	if h.sessions == nil {
		fail(w, http.StatusServiceUnavailable, "context store not initialized")
		return
	}
	index, err := strconv.Atoi(pathID(r, "index"))
	if err != nil {
		fail(w, http.StatusBadRequest, "invalid index")
		return
	}
	snap, err := h.sessions.Remove(pathID(r, "id"), index)
	h.contextResult(w, snap, err)
}

// ClearContext handles DELETE /api/v1/context/{id}/messages.
func (h *Handler) ClearContext(w http.ResponseWriter, r *http.Request) {
	if h.sessions == nil {
		fail(w, http.StatusServiceUnavailable, "context store not initialized")
		return
	}
	snap, err := h.sessions.Clear(pathID(r, "id"))
	h.contextResult(w, snap, err)
}

func (h *Handler) contextResult(w http.ResponseWriter, snap contextwin.Snapshot, err error) {
	switch {
	case err == nil:
		ok(w, snap)
	case errors.Is(err, contextwin.ErrNotFound):
		fail(w, http.StatusNotFound, err.Error())
	case errors.Is(err, contextwin.ErrUnknownKind), errors.Is(err, contextwin.ErrIndex):
		fail(w, http.StatusBadRequest, err.Error())
	default:
		fail(w, http.StatusInternalServerError, err.Error())
	}
}

func (h *Handler) trackSessions() {
	if h.metrics != nil {
		h.metrics.SetSessions(h.sessions.Len())
	}
}
