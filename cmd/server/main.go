package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/quell-mod/quell-go/internal/audit"
	"github.com/quell-mod/quell-go/internal/auth"
	"github.com/quell-mod/quell-go/internal/classify"
	"github.com/quell-mod/quell-go/internal/config"
	"github.com/quell-mod/quell-go/internal/dispatch"
	"github.com/quell-mod/quell-go/internal/handlers"
	"github.com/quell-mod/quell-go/internal/heuristic"
	"github.com/quell-mod/quell-go/internal/netguard"
	"github.com/quell-mod/quell-go/internal/ratelimit"
	"github.com/quell-mod/quell-go/internal/server"
	"github.com/quell-mod/quell-go/internal/sse"
	"github.com/quell-mod/quell-go/internal/tlsauto"
	"github.com/quell-mod/quell-go/internal/ws"
)

func main() {
	cfg := config.Load()
	logger := server.NewLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)
	for _, warning := range cfg.Warnings() {
		logger.Warn("config issue", "detail", warning)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Audit store: Postgres when a DSN is configured, in-memory otherwise.
	var store audit.Store
	if cfg.Database.DSN != "" {
		db, err := audit.Connect(ctx, cfg.Database.DSN, logger)
		if err != nil {
			logger.Error("failed to connect to audit store", "err", err)
			os.Exit(1)
		}
		defer db.Close()
		store = db
	} else {
		logger.Warn("no database configured, audit records are in-memory only")
		store = audit.NewMemoryStore()
	}

	// Remote classifier per config. An unusable remote is degraded to "off"
	// rather than fatal; the heuristic fallback carries the pipeline.
	var remote classify.Remote
	switch strings.ToLower(cfg.Remote.Provider) {
	case "http":
		if err := netguard.CheckURL(ctx, cfg.Remote.URL); err != nil {
			logger.Error("remote classifier endpoint rejected", "url", cfg.Remote.URL, "err", err)
		} else {
			remote = classify.NewHTTPClassifier(cfg.Remote.URL, cfg.Remote.APIKey, cfg.RemoteTimeout())
		}
	case "claude":
		if cfg.Remote.APIKey == "" {
			logger.Error("claude classifier selected but no API key configured")
		} else {
			remote = classify.NewClaudeClassifier(cfg.Remote.APIKey, cfg.Remote.Model)
		}
	case "off", "":
	default:
		logger.Error("unknown remote provider, running local-only", "provider", cfg.Remote.Provider)
	}

	scorer := heuristic.NewScorer(heuristic.Config{
		MinElapsedSeconds: cfg.MinElapsedSeconds(),
		HoneypotEnabled:   cfg.HoneypotEnabled(),
	})
	pipeline := classify.NewPipeline(scorer, remote, classify.Config{
		Sensitivity:    cfg.Sensitivity(),
		RemoteTimeout:  cfg.RemoteTimeout(),
		SkipRegistered: cfg.SkipRegistered(),
	}, logger)
	dispatcher := dispatch.NewDispatcher(store, nil, cfg.AutoDelete(), logger)

	hub := sse.NewHub(logger)
	limiter := ratelimit.New()
	wsManager := ws.NewManager(hub, store, logger)

	checkHandler := handlers.NewCheckHandler(pipeline, dispatcher, hub, limiter, logger)
	adminHandler := handlers.NewAdminHandler(store, cfg, logger)

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	r.Get("/ping", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("pong"))
	})

	// Intake: the CMS pre-persist hook (rate limited, no auth).
	r.Post("/v1/check", checkHandler.Check)

	// Live decision feed.
	r.Get("/ws", wsManager.HandleWS)

	// Admin API (requires the configured key).
	r.Route("/api", func(api chi.Router) {
		api.Use(auth.RequireAPIKey(cfg.Server.APIKey))
		api.Get("/decisions", adminHandler.ListDecisions)
		api.Get("/decisions/{fingerprint}", adminHandler.GetDecision)
		api.Get("/stats", adminHandler.GetStats)
		api.Get("/config", adminHandler.GetConfig)
	})

	logger.Info("heuristic patterns loaded", "counts", heuristic.PatternCounts())

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // WebSocket needs unlimited write time
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-sigCh:
			logger.Info("shutdown signal received")
		case <-gctx.Done():
		}
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		logger.Info("server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	if cfg.Server.TLSDomain != "" {
		cm := tlsauto.NewCertManager(cfg.Server.TLSDomain, cfg.Server.ACMEEmail, logger)
		g.Go(func() error {
			server.Supervise(gctx, logger, "https", func(ctx context.Context) {
				if err := cm.ListenAndServe(ctx, r); err != nil {
					logger.Error("https server failed", "err", err)
				}
			})
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error("server failed", "err", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}
