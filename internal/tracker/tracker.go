// Package tracker turns raw per-table number windows into accepted spins
// and strategy transitions.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"roulette-tracker/internal/dedup"
	"roulette-tracker/internal/domain"
	"roulette-tracker/internal/idhash"
	"roulette-tracker/internal/lookup"
	"roulette-tracker/internal/observability"
	"roulette-tracker/internal/strategy"
)

// ErrEmptyTableID is returned by Restore when no table ID is given.
var ErrEmptyTableID = errors.New("empty table id")

// Tracker holds every table seen so far.
// Tables are processed under their own lock, so different tables may be
// ingested concurrently while each table has a single writer.
type Tracker struct {
	clock         quartz.Clock
	sink          EventSink
	dedupCfg      dedup.Config
	maxCandidates int
	logger        *log.Logger

	mu     sync.RWMutex
	tables map[string]*Table
}

// Options contains configuration for creating a Tracker.
type Options struct {
	Clock         quartz.Clock // Default: real clock
	Sink          EventSink    // Default: NopSink
	Dedup         dedup.Config // Zero fields take dedup.DefaultConfig values
	MaxCandidates int          // Candidates considered per batch, 0 = all
	Logger        *log.Logger
}

// New creates a Tracker.
func New(opts Options) *Tracker {
	clock := opts.Clock
	if clock == nil {
		clock = quartz.NewReal()
	}

	sink := opts.Sink
	if sink == nil {
		sink = NopSink{}
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &Tracker{
		clock:         clock,
		sink:          sink,
		dedupCfg:      opts.Dedup,
		maxCandidates: opts.MaxCandidates,
		logger:        logger.WithPrefix("tracker"),
		tables:        make(map[string]*Table),
	}
}

// BatchResult describes what happened to one batch of candidates.
type BatchResult struct {
	TableID   string
	Accepted  []int                // accepted numbers, oldest first
	Rejected  map[dedup.Reason]int // rejection count by check
	Malformed int
	Updates   []domain.StrategyUpdate
}

// AnyAccepted reports whether at least one candidate was accepted.
func (r BatchResult) AnyAccepted() bool {
	return len(r.Accepted) > 0
}

// Ingest processes one poll response for a table and reports whether any
// number was accepted as a new spin.
func (t *Tracker) Ingest(ctx context.Context, tableID, tableName string, numbers []any) bool {
	return t.IngestBatch(ctx, tableID, tableName, numbers).AnyAccepted()
}

// IngestBatch processes one poll response for a table.
//
// numbers are the raw values reported by the source, most recent first.
// Malformed and out-of-range values are skipped. The oldest entries that
// repeat the table's recent sequence were seen by an earlier poll and are
// rejected; each of them is reported under the first dedup check that
// catches it, or as a sequence-head repeat when none does. The remaining
// entries go through the dedup checks oldest first, so history keeps the
// newest spin at its head and the strategy machine steps in spin order.
// Events are delivered to the sink after the table lock is released, in
// acceptance order: the spin, then the strategy update it caused.
func (t *Tracker) IngestBatch(ctx context.Context, tableID, tableName string, numbers []any) BatchResult {
	res := BatchResult{TableID: tableID, Rejected: make(map[dedup.Reason]int)}

	if tableID == "" {
		t.logger.Warn("Dropping batch without table id", "table_name", tableName, "size", len(numbers))
		return res
	}

	if t.maxCandidates > 0 && len(numbers) > t.maxCandidates {
		numbers = numbers[:t.maxCandidates]
	}

	logger := t.logger.With("table", tableID)

	candidates := make([]int, 0, len(numbers))
	for i, raw := range numbers {
		observability.RecordSpinSeen()

		n, err := dedup.Normalize(raw)
		if err != nil {
			res.Malformed++
			observability.RecordMalformed()
			logger.Debug("Skipping malformed value", "index", i, "value", raw, "err", err)
			continue
		}
		candidates = append(candidates, n)
	}

	tb := t.table(tableID, tableName)

	var spins []domain.SpinEvent

	tb.mu.Lock()
	now := t.clock.Now()
	ref := tb.ref

	fresh := len(candidates) - tb.window.Overlap(candidates)
	for _, n := range candidates[fresh:] {
		verdict := tb.window.Check(n, now)
		if verdict.Accepted() {
			verdict.Reason = dedup.ReasonSequenceHead
		}
		reject(logger, &res, n, verdict.Reason)
	}

	for i := fresh - 1; i >= 0; i-- {
		n := candidates[i]

		verdict := tb.window.Check(n, now)
		if !verdict.Accepted() {
			reject(logger, &res, n, verdict.Reason)
			continue
		}

		tb.window.Accept(n, now)
		tr := tb.machine.Process(n)

		res.Accepted = append(res.Accepted, n)
		spins = append(spins, domain.SpinEvent{
			SpinID:    idhash.ComputeSpinID(tableID, n, verdict.BucketStart),
			TableID:   tableID,
			TableName: ref.Name,
			Number:    n,
			Color:     lookup.ColorOf(n),
			Timestamp: now.UnixMilli(),
		})
		res.Updates = append(res.Updates, t.buildUpdate(ref, tb.machine, tr, now))

		observability.RecordSpinAccepted()
		observability.RecordTransition(string(tr.From), string(tr.To))
		if tr.Outcome != domain.OutcomeNone {
			observability.RecordOutcome(string(tr.Outcome))
		}
	}
	observability.SetSignaturesRemembered(tableID, tb.window.SignatureCount())
	tb.mu.Unlock()

	for i := range spins {
		t.emit(ctx, logger, spins[i], res.Updates[i])
	}

	if len(res.Accepted) > 0 {
		logger.Info("Accepted spins", "numbers", res.Accepted)
	}

	return res
}

func reject(logger *log.Logger, res *BatchResult, n int, reason dedup.Reason) {
	res.Rejected[reason]++
	observability.RecordSpinRejected(string(reason))
	logger.Debug("Duplicate suppressed", "number", n, "check", reason)
}

// buildUpdate must be called with the table lock held.
func (t *Tracker) buildUpdate(ref domain.TableRef, m *strategy.Machine, tr strategy.Transition, now time.Time) domain.StrategyUpdate {
	snap := m.Snapshot()
	return domain.StrategyUpdate{
		UpdateID:              idhash.ComputeUpdateID(ref.ID, tr.Step),
		TableID:               ref.ID,
		TableName:             ref.Name,
		Step:                  tr.Step,
		Number:                tr.Number,
		PreviousState:         tr.From,
		State:                 tr.To,
		TriggerNumber:         snap.Trigger,
		PreviousTriggerNumber: snap.PreviousTrigger,
		Wins:                  snap.Wins,
		Losses:                snap.Losses,
		Outcome:               tr.Outcome,
		SuggestedNumbers:      m.CurrentSuggestion(),
		Timestamp:             now.UnixMilli(),
	}
}

// emit delivers one accepted spin and its update. Sink failures are logged
// and counted, never returned.
func (t *Tracker) emit(ctx context.Context, logger *log.Logger, spin domain.SpinEvent, u domain.StrategyUpdate) {
	if err := t.sink.RecordSpin(ctx, spin); err != nil {
		observability.RecordSinkError("spin")
		logger.Error("Recording spin failed", "number", spin.Number, "err", err)
	}
	if err := t.sink.RecordStrategyUpdate(ctx, u); err != nil {
		observability.RecordSinkError("strategy_update")
		logger.Error("Recording strategy update failed", "step", u.Step, "err", err)
	}
}

// table returns the table for id, creating it on first sight.
func (t *Tracker) table(id, name string) *Table {
	t.mu.RLock()
	tb, ok := t.tables[id]
	t.mu.RUnlock()
	if ok {
		if name != "" {
			tb.mu.Lock()
			tb.ref.Name = name
			tb.mu.Unlock()
		}
		return tb
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	// Another caller may have created it in between
	if tb, ok = t.tables[id]; ok {
		return tb
	}

	tb = newTable(domain.TableRef{ID: id, Name: name}, t.dedupCfg)
	t.tables[id] = tb
	observability.SetTablesTracked(len(t.tables))
	t.logger.Info("Tracking new table", "table", id, "name", name)
	return tb
}

// Restore seeds a table from persisted state before any polling.
// spins are the latest accepted spins, most recent first. last is the latest
// strategy update of the table and may be nil. An existing table is reset.
func (t *Tracker) Restore(tableID, tableName string, spins []domain.Spin, last *domain.StrategyUpdate) error {
	if tableID == "" {
		return ErrEmptyTableID
	}

	tb := newTable(domain.TableRef{ID: tableID, Name: tableName}, t.dedupCfg)

	if len(spins) > 0 {
		numbers := make([]int, 0, len(spins))
		for _, s := range spins {
			if lookup.ValidNumber(s.Number) {
				numbers = append(numbers, s.Number)
			}
		}
		tb.window.Seed(numbers, time.UnixMilli(spins[0].ObservedAt))
	}

	if last != nil {
		err := tb.machine.Restore(strategy.Snapshot{
			State:           last.State,
			Trigger:         last.TriggerNumber,
			PreviousTrigger: last.PreviousTriggerNumber,
			Wins:            last.Wins,
			Losses:          last.Losses,
			Step:            last.Step,
		})
		if err != nil {
			return fmt.Errorf("restore %s: %w", tableID, err)
		}
	}

	t.mu.Lock()
	t.tables[tableID] = tb
	observability.SetTablesTracked(len(t.tables))
	t.mu.Unlock()

	t.logger.Info("Restored table", "table", tableID, "spins", len(spins), "state", tb.machine.State())
	return nil
}

// Snapshot returns a copy of the state of one table.
func (t *Tracker) Snapshot(tableID string) (TableSnapshot, bool) {
	t.mu.RLock()
	tb, ok := t.tables[tableID]
	t.mu.RUnlock()
	if !ok {
		return TableSnapshot{}, false
	}

	tb.mu.Lock()
	defer tb.mu.Unlock()
	return tb.snapshot(), true
}

// Tables returns all tracked tables sorted by ID.
func (t *Tracker) Tables() []domain.TableRef {
	t.mu.RLock()
	refs := make([]domain.TableRef, 0, len(t.tables))
	tables := make([]*Table, 0, len(t.tables))
	for _, tb := range t.tables {
		tables = append(tables, tb)
	}
	t.mu.RUnlock()

	for _, tb := range tables {
		tb.mu.Lock()
		refs = append(refs, tb.ref)
		tb.mu.Unlock()
	}

	sort.Slice(refs, func(i, j int) bool { return refs[i].ID < refs[j].ID })
	return refs
}
