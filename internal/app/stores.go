// Package app wires configuration into stores, sources and the tracker
// for the command-line entry points.
package app

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"roulette-tracker/internal/config"
	"roulette-tracker/internal/storage"
	chstore "roulette-tracker/internal/storage/clickhouse"
	"roulette-tracker/internal/storage/memory"
	"roulette-tracker/internal/storage/migrations"
	pgstore "roulette-tracker/internal/storage/postgres"
)

// Stores bundles the storage backends selected by configuration.
// Stats is nil when no statistics backend is configured.
type Stores struct {
	Spins   storage.SpinStore
	Updates storage.StrategyUpdateStore
	Stats   storage.TableStatsStore

	closers []func()
}

// OpenStores connects the configured backends. With migrate set, embedded
// migrations are applied first.
func OpenStores(ctx context.Context, cfg config.StorageConfig, migrate bool, logger *log.Logger) (*Stores, error) {
	if logger == nil {
		logger = log.Default()
	}

	if cfg.UseMemory {
		logger.Info("Using in-memory stores")
		return &Stores{
			Spins:   memory.NewSpinStore(),
			Updates: memory.NewStrategyUpdateStore(),
			Stats:   memory.NewTableStatsStore(),
		}, nil
	}

	s := &Stores{}

	pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN, pgstore.PoolOptions{
		MaxConns:        cfg.PostgresMaxConns,
		ConnectAttempts: 5,
	})
	if err != nil {
		return nil, err
	}
	s.closers = append(s.closers, pool.Close)

	if migrate {
		if _, err := migrations.RunPostgresMigrations(ctx, pool, logger); err != nil {
			s.Close()
			return nil, fmt.Errorf("postgres migrations: %w", err)
		}
		logger.Info("Postgres migrations applied")
	}
	s.Spins = pgstore.NewSpinStore(pool)
	s.Updates = pgstore.NewStrategyUpdateStore(pool)

	if cfg.ClickhouseDSN == "" {
		logger.Warn("No clickhouse_dsn configured, statistics stay in memory")
		return s, nil
	}

	var conn *chstore.Conn
	if migrate {
		conn, err = migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN, logger)
		if err == nil {
			logger.Info("ClickHouse migrations applied")
		}
	} else {
		conn, err = chstore.NewConn(ctx, cfg.ClickhouseDSN)
	}
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("clickhouse: %w", err)
	}
	s.closers = append(s.closers, func() { _ = conn.Close() })
	s.Stats = chstore.NewTableStatsStore(conn)

	return s, nil
}

// Close releases every connection, most recently opened first.
func (s *Stores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}
