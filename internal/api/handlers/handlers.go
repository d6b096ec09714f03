// Package handlers provides HTTP handler implementations for the Insight Lab REST API.
package handlers

import (
	"errors"
	"io"
	"net/http"

	json "github.com/goccy/go-json"

	"github.com/Manjussha/insightlab/internal/backend"
	"github.com/Manjussha/insightlab/internal/budget"
	"github.com/Manjussha/insightlab/internal/completion"
	"github.com/Manjussha/insightlab/internal/contextwin"
	"github.com/Manjussha/insightlab/internal/db"
	"github.com/Manjussha/insightlab/internal/metrics"
	"github.com/Manjussha/insightlab/internal/pricing"
	"github.com/Manjussha/insightlab/internal/proxy"
	"github.com/Manjussha/insightlab/internal/webhook"
	"github.com/Manjussha/insightlab/internal/ws"
)

// Handler holds all shared dependencies for API handler methods.
// Any dependency except db may be nil; handlers needing a missing one
// answer 503.
type Handler struct {
	db        *db.DB
	governor  *budget.Governor
	forwarder *proxy.Forwarder
	backends  *backend.Registry
	completer *completion.Service
	catalog   *pricing.Catalog
	sessions  *contextwin.Store
	hub       *ws.Hub
	webhook   *webhook.Dispatcher
	metrics   *metrics.Collector
}

// New creates a Handler with all dependencies.
func New(
	database *db.DB,
	governor *budget.Governor,
	forwarder *proxy.Forwarder,
	backends *backend.Registry,
	completer *completion.Service,
	catalog *pricing.Catalog,
	sessions *contextwin.Store,
	hub *ws.Hub,
	wh *webhook.Dispatcher,
	collector *metrics.Collector,
) *Handler {
	return &Handler{
		db:        database,
		governor:  governor,
		forwarder: forwarder,
		backends:  backends,
		completer: completer,
		catalog:   catalog,
		sessions:  sessions,
		hub:       hub,
		webhook:   wh,
		metrics:   collector,
	}
}

// ── Response helpers ──────────────────────────────────────────────────────────

type response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

type paginatedResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
	Meta    pageMeta    `json:"meta"`
}

type pageMeta struct {
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

func ok(w http.ResponseWriter, data interface{}) {
	writeJSON(w, http.StatusOK, response{Success: true, Data: data})
}

func okPaginated(w http.ResponseWriter, data interface{}, total, page, limit int) {
	writeJSON(w, http.StatusOK, paginatedResponse{
		Success: true,
		Data:    data,
		Meta:    pageMeta{Total: total, Page: page, Limit: limit},
	})
}

func fail(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, response{Success: false, Error: msg})
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// decode reads a JSON body into v. An empty body leaves v untouched.
func decode(r *http.Request, v interface{}) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func pathID(r *http.Request, name string) string {
	return r.PathValue(name)
}
