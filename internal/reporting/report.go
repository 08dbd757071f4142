// Package reporting builds Markdown and CSV reports from stored statistics
// and strategy backtests.
package reporting

import (
	"time"

	"roulette-tracker/internal/domain"
)

// Report is the full tracker report.
type Report struct {
	GeneratedAt time.Time
	TableCount  int

	Summary Summary

	// Tables is sorted by table_id.
	Tables []TableRow

	// Numbers holds wheel-wide frequencies, ordered by number.
	Numbers []NumberRow

	// Backtests is sorted by table_id.
	Backtests []BacktestRow

	// IntegrityErrors lists disagreements between stats snapshots and the spin store.
	IntegrityErrors []string
}

// Summary aggregates every table.
type Summary struct {
	TotalSpins int
	Wins       int
	Losses     int
	WinRate    float64
	LastSpinAt int64 // Unix ms
}

// TableRow is one table's latest statistics snapshot.
type TableRow struct {
	TableID              string
	TableName            string
	TotalSpins           int
	RedCount             int
	BlackCount           int
	GreenCount           int
	HotNumbers           []int
	ColdNumbers          []int
	Wins                 int
	Losses               int
	WinRate              float64
	CurrentLossStreak    int
	MaxConsecutiveLosses int
	LastSpinAt           int64 // Unix ms
	ComputedAt           int64 // Unix ms
}

// NumberRow is the frequency of one number across all tables.
type NumberRow struct {
	Number int
	Color  domain.Color
	Count  int
	Share  float64 // Count / total spins
}

// BacktestRow is the replay of one table's stored spins.
type BacktestRow struct {
	TableID              string
	TableName            string
	Spins                int
	Cycles               int
	Wins                 int
	Losses               int
	WinRate              float64
	MaxConsecutiveLosses int
	FinalState           domain.StrategyState
}
