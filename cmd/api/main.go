// Command api starts the Shift story API server.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/shiftnews/shift/internal/ai"
	"github.com/shiftnews/shift/internal/config"
	"github.com/shiftnews/shift/internal/db"
	"github.com/shiftnews/shift/internal/handlers"
	"github.com/shiftnews/shift/internal/middleware"
	"github.com/shiftnews/shift/internal/models"
	"github.com/shiftnews/shift/internal/pipeline"
	"github.com/shiftnews/shift/internal/scraper"
	"github.com/shiftnews/shift/internal/story"
)

func main() {
	cfg := config.Load()

	// Structured logging.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	})))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	translator, closeTranslator, err := ai.NewTranslator(ctx, cfg)
	if err != nil {
		slog.Error("failed to create translator", "backend", cfg.Translate.Backend, "err", err)
		os.Exit(1)
	}
	defer closeTranslator()
	if translator == nil {
		slog.Warn("translation disabled, no credentials", "backend", cfg.Translate.Backend)
	}

	p := pipeline.FromConfig(cfg, translator)

	diagHandler := &handlers.DiagHandler{
		Config:  cfg,
		Sources: p.SourceCount(),
	}
	if translator != nil {
		diagHandler.Translator = translator
	}
	if hs := scraper.NewHeadlineSource(cfg.NewsAPI, story.EN, nil); hs != nil {
		diagHandler.Headlines = hs
	}

	// The run archive is optional for the API; it only backs /api/diag/runs.
	if cfg.DB.Enabled() {
		pool, err := db.Connect(ctx, cfg.DB)
		if err != nil {
			slog.Warn("run archive not available", "err", err)
		} else {
			defer pool.Close()
			diagHandler.Runs = models.NewRunStore(pool)
		}
	}

	storiesHandler := &handlers.StoriesHandler{Pipeline: p}

	// Router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(90 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders: []string{
			"X-Shift-Data", "X-Shift-Trans", "X-Shift-Trans-Count", "X-Shift-Items",
			"X-Shift-Clusters", "X-Shift-Stories", "X-Shift-Run", "X-Shift-Reason",
		},
		MaxAge: 300,
	}))

	// Public routes.
	r.Get("/api/health", handlers.Health)
	r.Get("/api/stories", storiesHandler.ListStories)

	// Diagnostics.
	r.Route("/api/diag", func(r chi.Router) {
		r.Use(middleware.DiagAuth(cfg.Diag.TokenHash))
		r.Get("/", diagHandler.Diag)
		r.Get("/translator", diagHandler.DiagTranslator)
		r.Get("/runs", diagHandler.ListRuns)
	})

	// Start server.
	addr := cfg.Server.Addr()
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("server starting",
			"addr", addr,
			"sources", p.SourceCount(),
			"translate", cfg.Translate.Backend,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	<-done
	slog.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
	}

	slog.Info("server stopped")
}
