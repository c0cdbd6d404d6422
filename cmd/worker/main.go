// Command worker runs the snapshot job on a cron schedule. Each run builds
// the story list exactly as the API would, uploads it to object storage and
// records a run summary in Postgres. Nothing reads the archive back into the
// pipeline.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/shiftnews/shift/internal/ai"
	"github.com/shiftnews/shift/internal/config"
	"github.com/shiftnews/shift/internal/db"
	"github.com/shiftnews/shift/internal/models"
	"github.com/shiftnews/shift/internal/pipeline"
	"github.com/shiftnews/shift/internal/storage"
)

func main() {
	// Load configuration.
	cfg := config.Load()

	// Structured JSON logging.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	slog.Info("worker: starting snapshot worker", "schedule", cfg.Worker.Schedule)

	// Create a root context that is cancelled on shutdown.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	archiver := &pipeline.Archiver{}

	// Connect to the database when configured.
	if cfg.DB.Enabled() {
		pool, err := db.Connect(ctx, cfg.DB)
		if err != nil {
			slog.Error("worker: database connection failed", "err", err)
			os.Exit(1)
		}
		defer pool.Close()
		archiver.Runs = models.NewRunStore(pool)
	} else {
		slog.Warn("worker: DB_HOST not set, run summaries will not be recorded")
	}

	// Create S3 storage client.
	storageClient, err := storage.NewClient(ctx, cfg.S3)
	if err != nil {
		slog.Error("worker: storage client creation failed", "err", err)
		os.Exit(1)
	}
	if storageClient.Configured() {
		archiver.Snapshots = storageClient
	}

	translator, closeTranslator, err := ai.NewTranslator(ctx, cfg)
	if err != nil {
		slog.Error("worker: translator creation failed", "err", err)
		os.Exit(1)
	}
	defer closeTranslator()

	p := pipeline.FromConfig(cfg, translator)
	opts := pipeline.Options{Translate: cfg.Worker.Translate}

	snapshot := func(jobCtx context.Context) {
		res := p.Run(jobCtx, opts)
		run, err := archiver.Archive(jobCtx, res)
		if err != nil {
			slog.Error("worker: archive run", "run", res.RunID, "err", err)
			return
		}
		slog.Info("worker: snapshot archived",
			"run", run.ID,
			"data", run.Data,
			"stories", run.Stories,
			"snapshot", run.SnapshotKey,
		)
	}

	// Track in-flight jobs for graceful shutdown.
	var wg sync.WaitGroup

	// Set up cron scheduler (standard 5-field cron expressions). Overlapping
	// runs are skipped.
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))

	_, err = c.AddFunc(cfg.Worker.Schedule, func() {
		wg.Add(1)
		defer wg.Done()

		jobCtx, jobCancel := context.WithTimeout(ctx, 10*time.Minute)
		defer jobCancel()

		slog.Info("cron: snapshot job triggered")
		snapshot(jobCtx)
	})
	if err != nil {
		slog.Error("worker: add snapshot cron", "schedule", cfg.Worker.Schedule, "err", err)
		os.Exit(1)
	}

	// Start the cron scheduler.
	c.Start()
	slog.Info("worker: cron scheduler started",
		"jobs", len(c.Entries()),
	)

	// Take one snapshot on startup rather than waiting for the first tick.
	wg.Add(1)
	go func() {
		defer wg.Done()

		select {
		case <-time.After(5 * time.Second):
		case <-ctx.Done():
			return
		}

		jobCtx, jobCancel := context.WithTimeout(ctx, 10*time.Minute)
		defer jobCancel()

		slog.Info("worker: running initial snapshot on startup")
		snapshot(jobCtx)
	}()

	// ── Graceful Shutdown ──────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	slog.Info("worker: received shutdown signal", "signal", sig.String())

	// Stop accepting new cron jobs.
	cronCtx := c.Stop()

	// Cancel the root context to signal all in-flight jobs to stop.
	cancel()

	select {
	case <-cronCtx.Done():
		slog.Info("worker: cron scheduler stopped")
	case <-time.After(30 * time.Second):
		slog.Warn("worker: cron scheduler stop timed out")
	}

	// Wait for all in-flight goroutines.
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		slog.Info("worker: all in-flight jobs complete")
	case <-time.After(60 * time.Second):
		slog.Warn("worker: timed out waiting for in-flight jobs")
	}

	slog.Info("worker: shutdown complete")
}
