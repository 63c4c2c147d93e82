package postgres

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"
	"strings"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

const createMigrationsTable = `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		filename   TEXT PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`

// ApplyMigrations runs every embedded migration not yet recorded in
// schema_migrations, each in its own transaction, in filename order.
func ApplyMigrations(ctx context.Context, db DBPool, logger *slog.Logger) error {
	return applyMigrations(ctx, db, migrationFS, logger)
}

func applyMigrations(ctx context.Context, db DBPool, files fs.FS, logger *slog.Logger) error {
	if _, err := db.Exec(ctx, createMigrationsTable); err != nil {
		return fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	names, err := fs.Glob(files, "migrations/*.sql")
	if err != nil {
		return fmt.Errorf("failed to list migrations: %w", err)
	}
	sort.Strings(names)

	for _, path := range names {
		name := path[strings.LastIndex(path, "/")+1:]

		var exists bool
		if err := db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE filename = $1)`, name).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check migration %s: %w", name, err)
		}
		if exists {
			continue
		}

		body, err := fs.ReadFile(files, path)
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", name, err)
		}
		sqlText := strings.TrimSpace(string(body))
		if sqlText == "" {
			return fmt.Errorf("empty migration: %s", name)
		}

		if err := applyOne(ctx, db, name, sqlText); err != nil {
			return err
		}
		logger.Info("Applied database migration", "migration", name)
	}
	return nil
}

func applyOne(ctx context.Context, db DBPool, name, sqlText string) error {
	tx, err := db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin migration %s: %w", name, err)
	}
	if _, err := tx.Exec(ctx, sqlText); err != nil {
		_ = tx.Rollback(ctx)
		return fmt.Errorf("migration %s failed: %w", name, err)
	}
	if _, err := tx.Exec(ctx, `INSERT INTO schema_migrations (filename) VALUES ($1)`, name); err != nil {
		_ = tx.Rollback(ctx)
		return fmt.Errorf("failed to record migration %s: %w", name, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit migration %s: %w", name, err)
	}
	return nil
}
