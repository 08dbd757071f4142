package tracker

import (
	"sync"

	"roulette-tracker/internal/dedup"
	"roulette-tracker/internal/domain"
	"roulette-tracker/internal/strategy"
)

// Table owns the mutable state of one roulette table.
// mu serializes every read and write of window and machine.
type Table struct {
	mu      sync.Mutex
	ref     domain.TableRef
	window  *dedup.Window
	machine *strategy.Machine
}

func newTable(ref domain.TableRef, cfg dedup.Config) *Table {
	return &Table{
		ref:     ref,
		window:  dedup.NewWindow(cfg),
		machine: strategy.New(),
	}
}

// TableSnapshot is a read-only copy of a table's state.
type TableSnapshot struct {
	Table            domain.TableRef
	State            domain.StrategyState
	TriggerNumber    *int
	PreviousTrigger  *int
	Wins             int
	Losses           int
	Step             int64
	History          []int // most recent first
	RecentSequence   []int // most recent first
	SuggestedNumbers []int
	LastSeenAt       int64 // Unix milliseconds, 0 if nothing accepted
}

// snapshot must be called with mu held.
func (tb *Table) snapshot() TableSnapshot {
	ms := tb.machine.Snapshot()
	snap := TableSnapshot{
		Table:            tb.ref,
		State:            ms.State,
		TriggerNumber:    ms.Trigger,
		PreviousTrigger:  ms.PreviousTrigger,
		Wins:             ms.Wins,
		Losses:           ms.Losses,
		Step:             ms.Step,
		History:          tb.window.History(),
		RecentSequence:   tb.window.RecentSequence(),
		SuggestedNumbers: tb.machine.CurrentSuggestion(),
	}
	if _, ok := tb.window.LastNumber(); ok {
		snap.LastSeenAt = tb.window.LastSeenAt().UnixMilli()
	}
	return snap
}
