// Package db manages the PostgreSQL connection pool behind the run archive
// and applies the SQL migrations in migrations/.
package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shiftnews/shift/internal/config"
)

// Connect creates a pgxpool connection pool and runs pending migrations.
// Callers check cfg.Enabled first; the archive is optional.
func Connect(ctx context.Context, cfg config.DBConfig) (*pgxpool.Pool, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("db: connect: %w", ErrDisabled)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("db: parse config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("db: connect: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db: ping: %w", err)
	}

	slog.Info("database connected", "host", cfg.Host, "port", cfg.Port, "db", cfg.DBName)

	if err := runMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db: migrations: %w", err)
	}

	return pool, nil
}

// MigrationsDir is the directory scanned for *.sql files, relative to the
// working directory.
var MigrationsDir = "migrations"

// ErrDisabled is returned by Connect when no database host is configured.
var ErrDisabled = errors.New("database not configured")

// runMigrations reads SQL files from the migrations/ directory and executes
// them in sorted order. It uses a simple migrations tracking table to avoid
// re-running migrations.
func runMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	// Create the tracking table if it doesn't exist.
	const createTracker = `
		CREATE TABLE IF NOT EXISTS _migrations (
			filename TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`
	if _, err := pool.Exec(ctx, createTracker); err != nil {
		return fmt.Errorf("create tracker table: %w", err)
	}

	// Find migration files.
	migrationsDir := MigrationsDir
	entries, err := os.ReadDir(migrationsDir)
	if err != nil {
		// If the migrations directory doesn't exist, skip silently.
		if os.IsNotExist(err) {
			slog.Info("migrations directory not found, skipping")
			return nil
		}
		return fmt.Errorf("read migrations dir: %w", err)
	}

	files := migrationFiles(entries)

	for _, f := range files {
		// Check if already applied.
		var exists bool
		err := pool.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM _migrations WHERE filename = $1)", f).Scan(&exists)
		if err != nil {
			return fmt.Errorf("check migration %s: %w", f, err)
		}
		if exists {
			continue
		}

		// Read and execute the migration.
		content, err := os.ReadFile(filepath.Join(migrationsDir, f))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", f, err)
		}

		slog.Info("applying migration", "file", f)

		if _, err := pool.Exec(ctx, string(content)); err != nil {
			return fmt.Errorf("exec migration %s: %w", f, err)
		}

		// Record it.
		if _, err := pool.Exec(ctx, "INSERT INTO _migrations (filename) VALUES ($1)", f); err != nil {
			return fmt.Errorf("record migration %s: %w", f, err)
		}
	}

	slog.Info("migrations complete", "count", len(files))
	return nil
}

// migrationFiles returns the .sql entries in apply order.
func migrationFiles(entries []os.DirEntry) []string {
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	return files
}
