package migrations

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	chstore "roulette-tracker/internal/storage/clickhouse"
)

const clickhouseVersionTable = `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		name       String,
		applied_at Int64
	) ENGINE = ReplacingMergeTree()
	ORDER BY name
`

// RunClickhouseMigrations creates the DSN's database if needed, applies the
// embedded migrations not yet recorded in schema_migrations and returns a
// connection to that database.
func RunClickhouseMigrations(ctx context.Context, dsn string, logger *log.Logger) (*chstore.Conn, error) {
	if logger == nil {
		logger = log.Default()
	}
	logger = logger.WithPrefix("migrate")

	opts, err := chstore.ParseOptions(dsn)
	if err != nil {
		return nil, err
	}
	dbName := opts.Auth.Database
	if dbName == "" {
		return nil, fmt.Errorf("clickhouse dsn missing database")
	}

	// The target database may not exist yet, so connect to the default one first.
	opts.Auth.Database = ""
	admin, err := chstore.Open(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect clickhouse admin: %w", err)
	}
	err = admin.Exec(ctx, "CREATE DATABASE IF NOT EXISTS "+quoteIdent(dbName))
	admin.Close()
	if err != nil {
		return nil, fmt.Errorf("create database %s: %w", dbName, err)
	}

	opts.Auth.Database = dbName
	conn, err := chstore.Open(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect clickhouse db: %w", err)
	}
	if err := applyClickhouse(ctx, conn, logger); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

func applyClickhouse(ctx context.Context, conn *chstore.Conn, logger *log.Logger) error {
	pending, err := load(ClickhouseFS, "clickhouse")
	if err != nil {
		return err
	}

	if err := conn.Exec(ctx, clickhouseVersionTable); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	applied, err := appliedClickhouse(ctx, conn)
	if err != nil {
		return err
	}

	for _, m := range pending {
		if applied[m.name] {
			continue
		}
		stmts, err := splitStatements(m.sql)
		if err != nil {
			return fmt.Errorf("parse migration %s: %w", m.name, err)
		}
		// ClickHouse has no transactional DDL; each statement must be idempotent.
		for _, stmt := range stmts {
			if err := conn.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("apply migration %s: %w", m.name, err)
			}
		}
		if err := conn.Exec(ctx, "INSERT INTO schema_migrations (name, applied_at) VALUES (?, ?)",
			m.name, time.Now().UnixMilli()); err != nil {
			return fmt.Errorf("record migration %s: %w", m.name, err)
		}
		logger.Info("Applied migration", "db", "clickhouse", "name", m.name)
	}
	return nil
}

func appliedClickhouse(ctx context.Context, conn *chstore.Conn) (map[string]bool, error) {
	rows, err := conn.Query(ctx, "SELECT DISTINCT name FROM schema_migrations")
	if err != nil {
		return nil, fmt.Errorf("read schema_migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan schema_migrations: %w", err)
		}
		applied[name] = true
	}
	return applied, rows.Err()
}

func quoteIdent(name string) string {
	return "`" + name + "`"
}
