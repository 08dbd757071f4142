package replay

import (
	"context"

	"roulette-tracker/internal/domain"
	"roulette-tracker/internal/lookup"
	"roulette-tracker/internal/metrics"
	"roulette-tracker/internal/strategy"
)

// Engine consumes replayed spins, oldest first.
type Engine interface {
	OnSpin(ctx context.Context, spin *domain.Spin) error
}

// StrategyEngine drives a fresh strategy machine with replayed spins and
// records the outcome of every transition.
type StrategyEngine struct {
	machine  *strategy.Machine
	outcomes []domain.Outcome
	spins    int
	cycles   int
	name     string
}

// NewStrategyEngine creates an engine with a machine in its initial state.
func NewStrategyEngine() *StrategyEngine {
	return &StrategyEngine{machine: strategy.New()}
}

// OnSpin implements Engine. Out-of-range numbers are skipped.
func (e *StrategyEngine) OnSpin(_ context.Context, spin *domain.Spin) error {
	if !lookup.ValidNumber(spin.Number) {
		return nil
	}
	if spin.TableName != "" {
		e.name = spin.TableName
	}

	tr := e.machine.Process(spin.Number)
	e.spins++
	if tr.To == domain.StateTrigger {
		e.cycles++
	}
	e.outcomes = append(e.outcomes, tr.Outcome)
	return nil
}

// Result summarizes the replay of one table.
type Result struct {
	TableID   string
	TableName string
	Spins     int
	// Cycles counts the bets opened, i.e. entries into TRIGGER.
	Cycles               int
	Wins                 int
	Losses               int
	WinRate              float64
	CurrentLossStreak    int
	MaxConsecutiveLosses int
	FinalState           domain.StrategyState
}

// Result returns the accumulated statistics.
func (e *StrategyEngine) Result(tableID string) *Result {
	cur, longest := metrics.LossStreaks(e.outcomes)
	return &Result{
		TableID:              tableID,
		TableName:            e.name,
		Spins:                e.spins,
		Cycles:               e.cycles,
		Wins:                 e.machine.Wins(),
		Losses:               e.machine.Losses(),
		WinRate:              metrics.WinRate(e.machine.Wins(), e.machine.Losses()),
		CurrentLossStreak:    cur,
		MaxConsecutiveLosses: longest,
		FinalState:           e.machine.State(),
	}
}
