package reporting

import (
	"context"
	"fmt"
	"sort"
	"time"

	"roulette-tracker/internal/domain"
	"roulette-tracker/internal/lookup"
	"roulette-tracker/internal/metrics"
	"roulette-tracker/internal/replay"
	"roulette-tracker/internal/storage"
)

// Generator produces reports from stored data.
type Generator struct {
	statsStore storage.TableStatsStore
	replayer   *replay.Runner
	now        func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator. A nil statsStore produces
// a report from backtests only.
func NewGenerator(statsStore storage.TableStatsStore, spinStore storage.SpinStore) *Generator {
	return &Generator{
		statsStore: statsStore,
		replayer:   replay.NewRunner(spinStore),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate produces a complete report.
func (g *Generator) Generate(ctx context.Context) (*Report, error) {
	var stats []*domain.TableStats
	if g.statsStore != nil {
		var err error
		stats, err = g.statsStore.GetAllLatest(ctx)
		if err != nil {
			return nil, fmt.Errorf("load stats: %w", err)
		}
	}

	results, err := g.replayer.BacktestAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("backtest: %w", err)
	}

	tables := generateTableRows(stats)
	backtests := generateBacktestRows(results)

	return &Report{
		GeneratedAt:     g.now(),
		TableCount:      countTables(tables, backtests),
		Summary:         generateSummary(tables, backtests),
		Tables:          tables,
		Numbers:         generateNumberRows(stats),
		Backtests:       backtests,
		IntegrityErrors: checkIntegrity(tables, backtests),
	}, nil
}

func generateTableRows(stats []*domain.TableStats) []TableRow {
	rows := make([]TableRow, len(stats))
	for i, s := range stats {
		rows[i] = TableRow{
			TableID:              s.TableID,
			TableName:            s.TableName,
			TotalSpins:           s.TotalSpins,
			RedCount:             s.RedCount,
			BlackCount:           s.BlackCount,
			GreenCount:           s.GreenCount,
			HotNumbers:           s.HotNumbers,
			ColdNumbers:          s.ColdNumbers,
			Wins:                 s.Wins,
			Losses:               s.Losses,
			WinRate:              s.WinRate,
			CurrentLossStreak:    s.CurrentLossStreak,
			MaxConsecutiveLosses: s.MaxConsecutiveLosses,
			LastSpinAt:           s.LastSpinAt,
			ComputedAt:           s.ComputedAt,
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].TableID < rows[j].TableID })
	return rows
}

func generateBacktestRows(results []*replay.Result) []BacktestRow {
	rows := make([]BacktestRow, len(results))
	for i, r := range results {
		rows[i] = BacktestRow{
			TableID:              r.TableID,
			TableName:            r.TableName,
			Spins:                r.Spins,
			Cycles:               r.Cycles,
			Wins:                 r.Wins,
			Losses:               r.Losses,
			WinRate:              r.WinRate,
			MaxConsecutiveLosses: r.MaxConsecutiveLosses,
			FinalState:           r.FinalState,
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].TableID < rows[j].TableID })
	return rows
}

// generateNumberRows sums per-number frequencies over every table.
func generateNumberRows(stats []*domain.TableStats) []NumberRow {
	var freq [domain.MaxNumber + 1]int
	total := 0
	for _, s := range stats {
		for n, c := range s.Frequencies {
			freq[n] += c
			total += c
		}
	}
	if total == 0 {
		return nil
	}

	rows := make([]NumberRow, len(freq))
	for n, c := range freq {
		rows[n] = NumberRow{
			Number: n,
			Color:  lookup.ColorOf(n),
			Count:  c,
			Share:  float64(c) / float64(total),
		}
	}
	return rows
}

// generateSummary prefers stats snapshots and falls back to backtests when
// no snapshot exists.
func generateSummary(tables []TableRow, backtests []BacktestRow) Summary {
	var s Summary
	if len(tables) > 0 {
		for _, t := range tables {
			s.TotalSpins += t.TotalSpins
			s.Wins += t.Wins
			s.Losses += t.Losses
			if t.LastSpinAt > s.LastSpinAt {
				s.LastSpinAt = t.LastSpinAt
			}
		}
	} else {
		for _, b := range backtests {
			s.TotalSpins += b.Spins
			s.Wins += b.Wins
			s.Losses += b.Losses
		}
	}
	s.WinRate = metrics.WinRate(s.Wins, s.Losses)
	return s
}

func countTables(tables []TableRow, backtests []BacktestRow) int {
	ids := make(map[string]struct{}, len(tables)+len(backtests))
	for _, t := range tables {
		ids[t.TableID] = struct{}{}
	}
	for _, b := range backtests {
		ids[b.TableID] = struct{}{}
	}
	return len(ids)
}

// checkIntegrity reports tables whose snapshot counts more spins than the
// spin store holds. A snapshot counting fewer is only behind its next flush.
func checkIntegrity(tables []TableRow, backtests []BacktestRow) []string {
	stored := make(map[string]int, len(backtests))
	for _, b := range backtests {
		stored[b.TableID] = b.Spins
	}

	var errs []string
	for _, t := range tables {
		n, ok := stored[t.TableID]
		if !ok {
			errs = append(errs, fmt.Sprintf("table %s has stats but no stored spins", t.TableID))
			continue
		}
		if t.TotalSpins > n {
			errs = append(errs, fmt.Sprintf("table %s stats count %d spins, store holds %d", t.TableID, t.TotalSpins, n))
		}
	}
	return errs
}
