package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"roulette-tracker/internal/domain"
	"roulette-tracker/internal/storage"
)

// SpinStore implements storage.SpinStore using PostgreSQL.
type SpinStore struct {
	pool *Pool
}

// NewSpinStore creates a new SpinStore.
func NewSpinStore(pool *Pool) *SpinStore {
	return &SpinStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SpinStore = (*SpinStore)(nil)

const spinColumns = `spin_id, table_id, table_name, number, color, observed_at, created_at`

// Insert adds a new spin. Returns ErrDuplicateKey if spin_id exists.
func (s *SpinStore) Insert(ctx context.Context, sp *domain.Spin) (err error) {
	if sp == nil || sp.SpinID == "" || sp.TableID == "" {
		return storage.ErrInvalidInput
	}
	defer func(start time.Time) { observe("insert_spin", start, err) }(time.Now())

	query := `
		INSERT INTO spins (` + spinColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err = s.pool.Exec(ctx, query,
		sp.SpinID, sp.TableID, sp.TableName, sp.Number, string(sp.Color), sp.ObservedAt, sp.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert spin: %w", err)
	}
	return nil
}

// GetByTable retrieves all spins of a table, ordered by observed_at ASC.
func (s *SpinStore) GetByTable(ctx context.Context, tableID string) ([]*domain.Spin, error) {
	query := `
		SELECT ` + spinColumns + `
		FROM spins
		WHERE table_id = $1
		ORDER BY observed_at ASC, seq ASC
	`

	rows, err := s.pool.Query(ctx, query, tableID)
	if err != nil {
		return nil, fmt.Errorf("get spins by table: %w", err)
	}
	defer rows.Close()

	return scanSpins(rows)
}

// GetRecent retrieves the latest limit spins of a table, most recent first.
func (s *SpinStore) GetRecent(ctx context.Context, tableID string, limit int) ([]*domain.Spin, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidInput
	}

	query := `
		SELECT ` + spinColumns + `
		FROM spins
		WHERE table_id = $1
		ORDER BY observed_at DESC, seq DESC
		LIMIT $2
	`

	rows, err := s.pool.Query(ctx, query, tableID, limit)
	if err != nil {
		return nil, fmt.Errorf("get recent spins: %w", err)
	}
	defer rows.Close()

	return scanSpins(rows)
}

// GetByTimeRange retrieves spins observed within [start, end] (inclusive).
func (s *SpinStore) GetByTimeRange(ctx context.Context, tableID string, start, end int64) ([]*domain.Spin, error) {
	query := `
		SELECT ` + spinColumns + `
		FROM spins
		WHERE table_id = $1 AND observed_at >= $2 AND observed_at <= $3
		ORDER BY observed_at ASC, seq ASC
	`

	rows, err := s.pool.Query(ctx, query, tableID, start, end)
	if err != nil {
		return nil, fmt.Errorf("get spins by time range: %w", err)
	}
	defer rows.Close()

	return scanSpins(rows)
}

// ListTables returns every table with at least one spin, ordered by table_id.
// The name is taken from the latest spin of the table.
func (s *SpinStore) ListTables(ctx context.Context) ([]domain.TableRef, error) {
	query := `
		SELECT DISTINCT ON (table_id) table_id, table_name
		FROM spins
		ORDER BY table_id ASC, observed_at DESC, seq DESC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var refs []domain.TableRef
	for rows.Next() {
		var ref domain.TableRef
		if err := rows.Scan(&ref.ID, &ref.Name); err != nil {
			return nil, fmt.Errorf("scan table row: %w", err)
		}
		refs = append(refs, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate table rows: %w", err)
	}
	return refs, nil
}

// scanSpins scans multiple rows into a slice of Spin.
func scanSpins(rows pgx.Rows) ([]*domain.Spin, error) {
	var spins []*domain.Spin

	for rows.Next() {
		var sp domain.Spin
		var color string

		err := rows.Scan(
			&sp.SpinID, &sp.TableID, &sp.TableName, &sp.Number, &color, &sp.ObservedAt, &sp.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan spin row: %w", err)
		}
		sp.Color = domain.Color(color)

		spins = append(spins, &sp)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate spin rows: %w", err)
	}

	return spins, nil
}
