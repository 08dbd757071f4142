package storage

import (
	"context"

	"roulette-tracker/internal/domain"
)

// SpinStore provides access to spins storage.
type SpinStore interface {
	// Insert adds a new spin. Returns ErrDuplicateKey if spin_id exists.
	Insert(ctx context.Context, s *domain.Spin) error

	// GetByTable retrieves all spins of a table, ordered by observed_at ASC.
	GetByTable(ctx context.Context, tableID string) ([]*domain.Spin, error)

	// GetRecent retrieves the latest limit spins of a table, most recent first.
	GetRecent(ctx context.Context, tableID string, limit int) ([]*domain.Spin, error)

	// GetByTimeRange retrieves spins of a table observed within [start, end] (inclusive),
	// ordered by observed_at ASC.
	GetByTimeRange(ctx context.Context, tableID string, start, end int64) ([]*domain.Spin, error)

	// ListTables returns every table with at least one spin, ordered by table_id.
	ListTables(ctx context.Context) ([]domain.TableRef, error)
}

// StrategyUpdateStore provides access to strategy_updates storage.
type StrategyUpdateStore interface {
	// Insert adds a new update. Returns ErrDuplicateKey if update_id exists.
	Insert(ctx context.Context, u *domain.StrategyUpdate) error

	// GetLatest retrieves the update with the highest step for a table.
	// Returns ErrNotFound if the table has no updates.
	GetLatest(ctx context.Context, tableID string) (*domain.StrategyUpdate, error)

	// GetByTable retrieves all updates of a table, ordered by step ASC.
	GetByTable(ctx context.Context, tableID string) ([]*domain.StrategyUpdate, error)
}

// TableStatsStore provides access to table_stats snapshots.
type TableStatsStore interface {
	// Insert adds a new snapshot. Returns ErrDuplicateKey if (table_id, computed_at) exists.
	Insert(ctx context.Context, s *domain.TableStats) error

	// GetLatest retrieves the most recent snapshot of a table.
	// Returns ErrNotFound if the table has no snapshots.
	GetLatest(ctx context.Context, tableID string) (*domain.TableStats, error)

	// GetAllLatest retrieves the most recent snapshot of every table, ordered by table_id.
	GetAllLatest(ctx context.Context) ([]*domain.TableStats, error)
}
