package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/Manjussha/insightlab/internal/api"
	"github.com/Manjussha/insightlab/internal/auth"
	"github.com/Manjussha/insightlab/internal/backend"
	"github.com/Manjussha/insightlab/internal/budget"
	"github.com/Manjussha/insightlab/internal/completion"
	"github.com/Manjussha/insightlab/internal/config"
	"github.com/Manjussha/insightlab/internal/contextwin"
	"github.com/Manjussha/insightlab/internal/db"
	"github.com/Manjussha/insightlab/internal/metrics"
	"github.com/Manjussha/insightlab/internal/notify"
	"github.com/Manjussha/insightlab/internal/platform"
	"github.com/Manjussha/insightlab/internal/pricing"
	"github.com/Manjussha/insightlab/internal/proxy"
	"github.com/Manjussha/insightlab/internal/scheduler"
	"github.com/Manjussha/insightlab/internal/telegram"
	"github.com/Manjussha/insightlab/internal/webhook"
	"github.com/Manjussha/insightlab/internal/ws"
)

func serveCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API, proxy and dashboard WebSocket",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return serve(ctx)
		},
	}
}

func serve(parent context.Context) error {
	log.Printf("Insight Lab %s starting…", Version)

	// ── 1. Load configuration ────────────────────────────────────────────────
	cfg := config.Load()
	log.Printf("Config: port=%s workDir=%s backends=%d", cfg.Port, cfg.WorkDir, len(cfg.BackendURLs))
	if cfg.OpenAIKey == "" {
		log.Println("⚠  OPENAI_API_KEY not set; the proxy answers 500 and completions are simulated")
	}

	// ── 2. Ensure work directory exists ──────────────────────────────────────
	if err := platform.EnsureDir(cfg.WorkDir); err != nil {
		log.Fatalf("EnsureDir %s: %v", cfg.WorkDir, err)
	}

	// ── 3. Open database + migrate ───────────────────────────────────────────
	database, err := db.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("db.New: %v", err)
	}
	defer database.Close()

	if err := database.Migrate(cfg.DailyTokenLimit); err != nil {
		log.Fatalf("db.Migrate: %v", err)
	}
	log.Printf("Database ready: %s", cfg.DBPath)

	// Root context, cancelled on shutdown signal.
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	// ── 4. Metrics + WebSocket hub ───────────────────────────────────────────
	collector := metrics.NewCollector(nil)
	hub := ws.NewHub()
	go hub.Run(ctx)

	// ── 5. Telegram bot ──────────────────────────────────────────────────────
	bot, err := telegram.New(cfg.TelegramToken, cfg.TelegramChatID)
	if err != nil {
		log.Printf("Telegram init error (continuing without Telegram): %v", err)
	}
	if bot != nil {
		log.Printf("Telegram alerts enabled (chatID=%d)", cfg.TelegramChatID)
	}

	// ── 6. Notify + Webhook dispatchers ─────────────────────────────────────
	webhookDispatcher := webhook.New(database)
	events := &eventFanout{notify: notify.New(telegramSender(bot), webhookDispatcher), hub: hub}

	// ── 7. Budget governor + upstream proxy ──────────────────────────────────
	governor := budget.NewGovernor(database, events)
	forwarder := proxy.New(proxy.Config{
		BaseURL: cfg.OpenAIBaseURL,
		APIKey:  cfg.OpenAIKey,
		Model:   cfg.OpenAIModel,
		Timeout: cfg.UpstreamTimeout,
	}, governor, collector)

	// ── 8. Completion backends ───────────────────────────────────────────────
	registry := backend.NewRegistry()
	for _, u := range cfg.BackendURLs {
		registry.Register(backend.NewHTTPBackend(u, cfg.UpstreamTimeout))
	}
	if len(cfg.BackendURLs) == 0 {
		registry.Register(backend.NewLocalBackend(forwarder))
	}
	log.Printf("Completion backends: %v", registry.List())

	completer := completion.NewService(registry,
		completion.WithRecorder(collector),
		completion.WithNotifier(events),
		completion.WithBroadcaster(hub),
		completion.WithLogWriter(database),
	)

	// ── 9. Pricing catalog (+ hot reload) ────────────────────────────────────
	table := pricing.DefaultTable()
	if cfg.PricingFile != "" {
		if table, err = pricing.LoadFile(cfg.PricingFile); err != nil {
			log.Fatalf("pricing.LoadFile: %v", err)
		}
	}
	catalog := pricing.NewCatalog(table)
	if cfg.PricingFile != "" {
		watcher := pricing.NewWatcher(cfg.PricingFile, catalog, 0)
		go func() {
			if err := watcher.Watch(ctx); err != nil {
				log.Printf("pricing.Watch: %v", err)
			}
		}()
	}

	// ── 10. Context-window sessions + maintenance ────────────────────────────
	sessions := contextwin.NewStore()
	schedEngine := scheduler.New(scheduler.Config{
		SessionIdle: cfg.SessionIdle,
		Retention:   cfg.UsageRetention,
	}, sessions, database, collector)
	if err := schedEngine.Start(ctx); err != nil {
		log.Printf("scheduler.Start: %v", err)
	}

	// ── 11. Admin auth ───────────────────────────────────────────────────────
	admin, err := auth.NewAdmin(cfg.AdminToken)
	if err != nil {
		log.Fatalf("auth.NewAdmin: %v", err)
	}
	if !admin.Enabled() {
		log.Println("ADMIN_TOKEN not set; admin routes answer 401")
	}

	// ── 12. HTTP router ──────────────────────────────────────────────────────
	mux := http.NewServeMux()
	api.SetupRoutes(mux, &api.Deps{
		DB:        database,
		Governor:  governor,
		Forwarder: forwarder,
		Backends:  registry,
		Completer: completer,
		Catalog:   catalog,
		Sessions:  sessions,
		Hub:       hub,
		Streamer:  ws.NewStreamer(),
		Webhook:   webhookDispatcher,
		Metrics:   collector,
		Admin:     admin,
	})

	// ── 13. Start HTTP server ────────────────────────────────────────────────
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      api.Middleware(mux, collector),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigCh:
			log.Printf("Received %s, shutting down…", sig)
		case <-ctx.Done():
		}
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP shutdown: %v", err)
		}
	}()

	log.Printf("Insight Lab listening on http://0.0.0.0:%s", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("ListenAndServe: %v", err)
	}
	webhookDispatcher.Wait()
	log.Printf("Insight Lab stopped.")
	return nil
}

// eventFanout delivers operational events to notification channels and to
// connected dashboards.
type eventFanout struct {
	notify *notify.Dispatcher
	hub    *ws.Hub
}

func (e *eventFanout) Send(event string, payload interface{}) {
	e.notify.Send(event, payload)
	e.hub.Broadcast(event, payload)
}

// telegramSender wraps *telegram.Bot to implement notify.Sender.
// Returns nil if bot is nil (Telegram disabled).
func telegramSender(bot *telegram.Bot) notify.Sender {
	if bot == nil {
		return nil
	}
	return bot
}
