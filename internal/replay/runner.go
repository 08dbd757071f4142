// Package replay backtests the terminal-numbers strategy over stored spins.
package replay

import (
	"context"
	"fmt"

	"roulette-tracker/internal/domain"
	"roulette-tracker/internal/storage"
)

// Runner loads spins from storage and replays them oldest first.
type Runner struct {
	spinStore storage.SpinStore
}

// NewRunner creates a new replay runner.
func NewRunner(spinStore storage.SpinStore) *Runner {
	return &Runner{spinStore: spinStore}
}

// Run replays spins of a table observed within [from, to] through engine.
func (r *Runner) Run(ctx context.Context, tableID string, from, to int64, engine Engine) error {
	spins, err := r.spinStore.GetByTimeRange(ctx, tableID, from, to)
	if err != nil {
		return fmt.Errorf("load spins: %w", err)
	}
	return feed(ctx, spins, engine)
}

// RunAll replays every stored spin of a table through engine.
func (r *Runner) RunAll(ctx context.Context, tableID string, engine Engine) error {
	spins, err := r.spinStore.GetByTable(ctx, tableID)
	if err != nil {
		return fmt.Errorf("load spins: %w", err)
	}
	if len(spins) == 0 {
		return ErrNoSpins
	}
	return feed(ctx, spins, engine)
}

// Backtest replays a table through a fresh strategy machine.
func (r *Runner) Backtest(ctx context.Context, tableID string) (*Result, error) {
	engine := NewStrategyEngine()
	if err := r.RunAll(ctx, tableID, engine); err != nil {
		return nil, err
	}
	return engine.Result(tableID), nil
}

// BacktestAll backtests every table that has stored spins, ordered by table ID.
func (r *Runner) BacktestAll(ctx context.Context) ([]*Result, error) {
	tables, err := r.spinStore.ListTables(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}

	results := make([]*Result, 0, len(tables))
	for _, t := range tables {
		res, err := r.Backtest(ctx, t.ID)
		if err != nil {
			return nil, fmt.Errorf("table %s: %w", t.ID, err)
		}
		if res.TableName == "" {
			res.TableName = t.Name
		}
		results = append(results, res)
	}
	return results, nil
}

func feed(ctx context.Context, spins []*domain.Spin, engine Engine) error {
	if err := ValidateOrder(spins); err != nil {
		return err
	}
	for _, s := range spins {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := engine.OnSpin(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

// ValidateOrder checks that spins are sorted by ObservedAt ascending.
func ValidateOrder(spins []*domain.Spin) error {
	for i := 1; i < len(spins); i++ {
		if spins[i].ObservedAt < spins[i-1].ObservedAt {
			return fmt.Errorf("%w: spin %s at index %d", ErrInvalidOrdering, spins[i].SpinID, i)
		}
	}
	return nil
}
