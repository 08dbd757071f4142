package clickhouse

import (
	"context"
	"fmt"
	"time"

	"roulette-tracker/internal/domain"
	"roulette-tracker/internal/storage"
)

// TableStatsStore implements storage.TableStatsStore using ClickHouse.
type TableStatsStore struct {
	conn *Conn
}

// NewTableStatsStore creates a new TableStatsStore.
func NewTableStatsStore(conn *Conn) *TableStatsStore {
	return &TableStatsStore{conn: conn}
}

// Compile-time interface check.
var _ storage.TableStatsStore = (*TableStatsStore)(nil)

const statsColumns = `
	table_id, table_name, total_spins, frequencies,
	red_count, black_count, green_count, hot_numbers, cold_numbers,
	wins, losses, win_rate, current_loss_streak, max_consecutive_losses,
	last_spin_at, computed_at`

// Insert adds a new snapshot. Returns ErrDuplicateKey if (table_id, computed_at) exists.
func (s *TableStatsStore) Insert(ctx context.Context, st *domain.TableStats) (err error) {
	if st == nil || st.TableID == "" {
		return storage.ErrInvalidInput
	}
	defer func(start time.Time) { observe("insert_table_stats", start, err) }(time.Now())

	// MergeTree does not enforce keys, check explicitly for append-only semantics
	exists, err := s.exists(ctx, st.TableID, st.ComputedAt)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if exists {
		return storage.ErrDuplicateKey
	}

	freqs := make([]uint32, len(st.Frequencies))
	for i, f := range st.Frequencies {
		freqs[i] = uint32(f)
	}

	query := `INSERT INTO table_stats (` + statsColumns + `) VALUES (
		?, ?, ?, ?,
		?, ?, ?, ?, ?,
		?, ?, ?, ?, ?,
		?, ?
	)`

	err = s.conn.Exec(ctx, query,
		st.TableID, st.TableName, uint32(st.TotalSpins), freqs,
		uint32(st.RedCount), uint32(st.BlackCount), uint32(st.GreenCount), toUint8s(st.HotNumbers), toUint8s(st.ColdNumbers),
		uint32(st.Wins), uint32(st.Losses), st.WinRate, uint32(st.CurrentLossStreak), uint32(st.MaxConsecutiveLosses),
		st.LastSpinAt, st.ComputedAt,
	)
	if err != nil {
		return fmt.Errorf("insert table stats: %w", err)
	}
	return nil
}

// GetLatest retrieves the most recent snapshot of a table.
func (s *TableStatsStore) GetLatest(ctx context.Context, tableID string) (*domain.TableStats, error) {
	query := `
		SELECT ` + statsColumns + `
		FROM table_stats FINAL
		WHERE table_id = ?
		ORDER BY computed_at DESC
		LIMIT 1
	`

	rows, err := s.conn.Query(ctx, query, tableID)
	if err != nil {
		return nil, fmt.Errorf("query latest stats: %w", err)
	}
	defer rows.Close()

	stats, err := scanTableStats(rows)
	if err != nil {
		return nil, err
	}
	if len(stats) == 0 {
		return nil, storage.ErrNotFound
	}
	return stats[0], nil
}

// GetAllLatest retrieves the most recent snapshot of every table, ordered by table_id.
func (s *TableStatsStore) GetAllLatest(ctx context.Context) ([]*domain.TableStats, error) {
	query := `
		SELECT ` + statsColumns + `
		FROM table_stats FINAL
		ORDER BY table_id ASC, computed_at DESC
		LIMIT 1 BY table_id
	`

	rows, err := s.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query all latest stats: %w", err)
	}
	defer rows.Close()

	return scanTableStats(rows)
}

func (s *TableStatsStore) exists(ctx context.Context, tableID string, computedAt int64) (bool, error) {
	query := `
		SELECT count(*) FROM table_stats FINAL
		WHERE table_id = ? AND computed_at = ?
	`

	var count uint64
	if err := s.conn.QueryRow(ctx, query, tableID, computedAt).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

// Rows interface for scanning
type chRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

// scanTableStats scans multiple rows into a slice.
func scanTableStats(rows chRows) ([]*domain.TableStats, error) {
	var result []*domain.TableStats

	for rows.Next() {
		var (
			st                                  domain.TableStats
			total, red, black, green            uint32
			wins, losses, lossStreak, maxLosses uint32
			freqs                               []uint32
			hot, cold                           []uint8
		)

		err := rows.Scan(
			&st.TableID, &st.TableName, &total, &freqs,
			&red, &black, &green, &hot, &cold,
			&wins, &losses, &st.WinRate, &lossStreak, &maxLosses,
			&st.LastSpinAt, &st.ComputedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan table stats row: %w", err)
		}

		st.TotalSpins = int(total)
		for i := 0; i < len(freqs) && i < len(st.Frequencies); i++ {
			st.Frequencies[i] = int(freqs[i])
		}
		st.RedCount, st.BlackCount, st.GreenCount = int(red), int(black), int(green)
		st.HotNumbers, st.ColdNumbers = fromUint8s(hot), fromUint8s(cold)
		st.Wins, st.Losses = int(wins), int(losses)
		st.CurrentLossStreak, st.MaxConsecutiveLosses = int(lossStreak), int(maxLosses)

		result = append(result, &st)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate table stats rows: %w", err)
	}

	return result, nil
}

func toUint8s(ns []int) []uint8 {
	out := make([]uint8, len(ns))
	for i, n := range ns {
		out[i] = uint8(n)
	}
	return out
}

func fromUint8s(ns []uint8) []int {
	out := make([]int, len(ns))
	for i, n := range ns {
		out[i] = int(n)
	}
	return out
}
