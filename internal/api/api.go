// Package api sets up the HTTP routes and middleware for Insight Lab's REST API.
package api

import (
	"net/http"

	"github.com/Manjussha/insightlab/internal/api/handlers"
	"github.com/Manjussha/insightlab/internal/auth"
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

// Deps holds all dependencies injected into the API handlers.
type Deps struct {
	DB        *db.DB
	Governor  *budget.Governor
	Forwarder *proxy.Forwarder
	Backends  *backend.Registry
	Completer *completion.Service
	Catalog   *pricing.Catalog
	Sessions  *contextwin.Store
	Hub       *ws.Hub
	Streamer  *ws.Streamer
	Webhook   *webhook.Dispatcher
	Metrics   *metrics.Collector
	Admin     *auth.Admin
}

// SetupRoutes registers all HTTP routes on the given ServeMux.
// Uses Go 1.22 method+pattern routing syntax.
func SetupRoutes(mux *http.ServeMux, deps *Deps) {
	h := handlers.New(deps.DB, deps.Governor, deps.Forwarder, deps.Backends, deps.Completer,
		deps.Catalog, deps.Sessions, deps.Hub, deps.Webhook, deps.Metrics)

	requireAdmin := func(next http.HandlerFunc) http.Handler {
		if deps.Admin == nil {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, `{"success":false,"error":"admin API disabled"}`, http.StatusUnauthorized)
			})
		}
		return deps.Admin.RequireAdmin(next)
	}

	// ── Public routes ────────────────────────────────────────────────────────
	mux.HandleFunc("GET /healthz", h.Healthz)

	// Visualization
	mux.HandleFunc("POST /api/v1/tokenize", h.Tokenize)
	mux.HandleFunc("POST /api/v1/simulate", h.Simulate)
	mux.HandleFunc("GET /api/v1/simulate", h.SimulateShared)
	mux.HandleFunc("POST /api/v1/complete", h.Complete)
	mux.HandleFunc("GET /api/v1/share", h.Share)

	// Prompt analysis
	mux.HandleFunc("POST /api/v1/analyze", h.Analyze)
	mux.HandleFunc("GET /api/v1/models", h.ListModels)
	mux.HandleFunc("POST /api/v1/bias", h.Bias)
	mux.HandleFunc("GET /api/v1/pipeline", h.Pipeline)

	// Context window
	mux.HandleFunc("POST /api/v1/context", h.CreateContext)
	mux.HandleFunc("GET /api/v1/context/{id}", h.GetContext)
	mux.HandleFunc("DELETE /api/v1/context/{id}", h.DeleteContext)
	mux.HandleFunc("POST /api/v1/context/{id}/messages", h.AddMessage)
	mux.HandleFunc("DELETE /api/v1/context/{id}/messages", h.ClearContext)
	mux.HandleFunc("DELETE /api/v1/context/{id}/messages/{index}", h.RemoveMessage)

	// Upstream proxy, on both the current and the legacy serverless path.
	mux.HandleFunc("POST /api/openai-proxy", h.Proxy)
	mux.HandleFunc("POST /.netlify/functions/openai-proxy", h.Proxy)

	// Realtime + metrics
	if deps.Hub != nil {
		mux.HandleFunc("GET /ws", deps.Hub.ServeWS)
	}
	if deps.Streamer != nil {
		mux.HandleFunc("GET /ws/stream", deps.Streamer.ServeStream)
	}
	if deps.Metrics != nil {
		mux.Handle("GET /metrics", deps.Metrics.Handler())
	}

	// ── Admin routes ─────────────────────────────────────────────────────────
	// Usage + budget
	mux.Handle("GET /api/v1/usage", requireAdmin(h.GetUsage))
	mux.Handle("GET /api/v1/budget", requireAdmin(h.GetBudget))
	mux.Handle("PUT /api/v1/budget", requireAdmin(h.UpdateBudget))

	// Logs
	mux.Handle("GET /api/v1/logs", requireAdmin(h.ListLogs))

	// Webhooks
	mux.Handle("GET /api/v1/webhooks", requireAdmin(h.ListWebhooks))
	mux.Handle("POST /api/v1/webhooks", requireAdmin(h.CreateWebhook))
	mux.Handle("GET /api/v1/webhooks/{id}", requireAdmin(h.GetWebhook))
	mux.Handle("PUT /api/v1/webhooks/{id}", requireAdmin(h.UpdateWebhook))
	mux.Handle("DELETE /api/v1/webhooks/{id}", requireAdmin(h.DeleteWebhook))
	mux.Handle("POST /api/v1/webhooks/{id}/test", requireAdmin(h.TestWebhook))
}
