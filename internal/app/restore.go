package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"

	"roulette-tracker/internal/dedup"
	"roulette-tracker/internal/domain"
	"roulette-tracker/internal/metrics"
	"roulette-tracker/internal/storage"
	"roulette-tracker/internal/tracker"
)

// RestoreTracker seeds tr with the latest spins and strategy update of
// every table found in the spin store and returns how many were restored.
func RestoreTracker(ctx context.Context, tr *tracker.Tracker, spins storage.SpinStore, updates storage.StrategyUpdateStore, logger *log.Logger) (int, error) {
	if logger == nil {
		logger = log.Default()
	}

	tables, err := spins.ListTables(ctx)
	if err != nil {
		return 0, fmt.Errorf("list tables: %w", err)
	}

	limit := dedup.DefaultConfig().MaxHistory
	restored := 0
	for _, t := range tables {
		recent, err := spins.GetRecent(ctx, t.ID, limit)
		if err != nil {
			return 0, fmt.Errorf("load spins of %s: %w", t.ID, err)
		}

		var last *domain.StrategyUpdate
		if updates != nil {
			last, err = updates.GetLatest(ctx, t.ID)
			if errors.Is(err, storage.ErrNotFound) {
				last, err = nil, nil
			}
			if err != nil {
				return 0, fmt.Errorf("load strategy of %s: %w", t.ID, err)
			}
		}

		list := make([]domain.Spin, len(recent))
		for i, s := range recent {
			list[i] = *s
		}
		if err := tr.Restore(t.ID, t.Name, list, last); err != nil {
			// Corrupt state skips only its own table.
			logger.Error("Skipping table restore", "table", t.ID, "err", err)
			continue
		}
		restored++
	}
	return restored, nil
}

// SeedAggregator resumes aggregator statistics from the latest snapshots.
func SeedAggregator(ctx context.Context, agg *metrics.Aggregator, stats storage.TableStatsStore) (int, error) {
	if stats == nil {
		return 0, nil
	}
	all, err := stats.GetAllLatest(ctx)
	if err != nil {
		return 0, fmt.Errorf("load stats: %w", err)
	}
	for _, s := range all {
		agg.Seed(s)
	}
	return len(all), nil
}
