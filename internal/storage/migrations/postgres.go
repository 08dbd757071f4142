package migrations

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/jackc/pgx/v5"

	"roulette-tracker/internal/storage/postgres"
)

const postgresVersionTable = `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		name       TEXT PRIMARY KEY,
		applied_at BIGINT NOT NULL
	)
`

// RunPostgresMigrations applies every embedded migration not yet recorded in
// schema_migrations, each in its own transaction, and returns the names applied.
func RunPostgresMigrations(ctx context.Context, pool *postgres.Pool, logger *log.Logger) ([]string, error) {
	if logger == nil {
		logger = log.Default()
	}
	logger = logger.WithPrefix("migrate")

	pending, err := load(PostgresFS, "postgres")
	if err != nil {
		return nil, err
	}

	if _, err := pool.Exec(ctx, postgresVersionTable); err != nil {
		return nil, fmt.Errorf("create schema_migrations: %w", err)
	}

	applied, err := appliedPostgres(ctx, pool)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, m := range pending {
		if applied[m.name] {
			continue
		}
		err := pool.WithTx(ctx, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, m.sql); err != nil {
				return err
			}
			_, err := tx.Exec(ctx,
				`INSERT INTO schema_migrations (name, applied_at) VALUES ($1, $2)`,
				m.name, time.Now().UnixMilli())
			return err
		})
		if err != nil {
			return names, fmt.Errorf("apply migration %s: %w", m.name, err)
		}
		logger.Info("Applied migration", "db", "postgres", "name", m.name)
		names = append(names, m.name)
	}
	return names, nil
}

func appliedPostgres(ctx context.Context, pool *postgres.Pool) (map[string]bool, error) {
	rows, err := pool.Query(ctx, `SELECT name FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("read schema_migrations: %w", err)
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("read schema_migrations: %w", err)
	}

	out := make(map[string]bool, len(names))
	for _, n := range names {
		out[n] = true
	}
	return out, nil
}
