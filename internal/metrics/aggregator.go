// Package metrics aggregates per-table spin statistics and strategy results
// off the tracker's hot path and flushes periodic snapshots to storage.
package metrics

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"roulette-tracker/internal/domain"
	"roulette-tracker/internal/observability"
	"roulette-tracker/internal/storage"
	"roulette-tracker/internal/tracker"
)

// Defaults for AggregatorOptions.
const (
	DefaultFlushInterval = time.Minute
	DefaultQueueSize     = 1024
	DefaultTopN          = 5
)

// AggregatorOptions configures an Aggregator.
type AggregatorOptions struct {
	// Store receives flushed snapshots. Nil keeps statistics in memory only.
	Store         storage.TableStatsStore
	Clock         quartz.Clock
	FlushInterval time.Duration
	QueueSize     int
	TopN          int
	Logger        *log.Logger
}

type event struct {
	spin   *domain.SpinEvent
	update *domain.StrategyUpdate
}

// Aggregator implements tracker.EventSink. Events are enqueued without
// blocking and folded into per-table statistics by Run.
type Aggregator struct {
	store         storage.TableStatsStore
	clock         quartz.Clock
	flushInterval time.Duration
	topN          int
	logger        *log.Logger

	queue   chan event
	dropped atomic.Int64

	mu     sync.Mutex
	tables map[string]*accumulator
}

// NewAggregator creates an aggregator.
func NewAggregator(opts AggregatorOptions) *Aggregator {
	if opts.Clock == nil {
		opts.Clock = quartz.NewReal()
	}
	if opts.FlushInterval <= 0 {
		opts.FlushInterval = DefaultFlushInterval
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}
	if opts.TopN <= 0 {
		opts.TopN = DefaultTopN
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}

	return &Aggregator{
		store:         opts.Store,
		clock:         opts.Clock,
		flushInterval: opts.FlushInterval,
		topN:          opts.TopN,
		logger:        opts.Logger.WithPrefix("stats"),
		queue:         make(chan event, opts.QueueSize),
		tables:        make(map[string]*accumulator),
	}
}

var _ tracker.EventSink = (*Aggregator)(nil)

// RecordSpin implements tracker.EventSink.
func (a *Aggregator) RecordSpin(_ context.Context, ev domain.SpinEvent) error {
	a.enqueue(event{spin: &ev})
	return nil
}

// RecordStrategyUpdate implements tracker.EventSink.
func (a *Aggregator) RecordStrategyUpdate(_ context.Context, u domain.StrategyUpdate) error {
	a.enqueue(event{update: &u})
	return nil
}

func (a *Aggregator) enqueue(ev event) {
	select {
	case a.queue <- ev:
	default:
		a.dropped.Add(1)
		observability.RecordStatsDropped()
	}
}

// Dropped returns the number of events discarded because the queue was full.
func (a *Aggregator) Dropped() int64 {
	return a.dropped.Load()
}

// Seed resumes a table's statistics from a persisted snapshot.
// Tables that already received events are left untouched.
func (a *Aggregator) Seed(s *domain.TableStats) {
	if s == nil || s.TableID == "" {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.tables[s.TableID]; ok {
		return
	}
	acc := &accumulator{}
	acc.seed(s)
	a.tables[s.TableID] = acc
}

// Run consumes queued events and flushes dirty tables every FlushInterval.
// On cancellation it drains the queue, flushes once more and returns nil.
func (a *Aggregator) Run(ctx context.Context) error {
	ticker := a.clock.NewTicker(a.flushInterval, "aggregator", "flush")
	defer ticker.Stop()

	a.logger.Info("aggregator started", "flush_interval", a.flushInterval)

	for {
		select {
		case <-ctx.Done():
			a.drain()
			if err := a.Flush(context.WithoutCancel(ctx)); err != nil {
				a.logger.Error("final flush failed", "err", err)
			}
			a.logger.Info("aggregator stopped")
			return nil
		case ev := <-a.queue:
			a.apply(ev)
		case <-ticker.C:
			if err := a.Flush(ctx); err != nil {
				a.logger.Warn("flush failed", "err", err)
			}
		}
	}
}

func (a *Aggregator) drain() {
	for {
		select {
		case ev := <-a.queue:
			a.apply(ev)
		default:
			return
		}
	}
}

func (a *Aggregator) apply(ev event) {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch {
	case ev.spin != nil:
		a.table(ev.spin.TableID, ev.spin.TableName).addSpin(*ev.spin)
	case ev.update != nil:
		a.table(ev.update.TableID, ev.update.TableName).addUpdate(*ev.update)
	}
}

// table returns the accumulator for id. Caller holds a.mu.
func (a *Aggregator) table(id, name string) *accumulator {
	acc, ok := a.tables[id]
	if !ok {
		acc = &accumulator{ref: domain.TableRef{ID: id, Name: name}}
		a.tables[id] = acc
	}
	return acc
}

// Flush writes a snapshot of every table that changed since the last
// successful flush. Tables whose insert fails stay dirty.
func (a *Aggregator) Flush(ctx context.Context) error {
	if a.store == nil {
		return nil
	}

	now := a.clock.Now().UnixMilli()

	a.mu.Lock()
	var pending []*domain.TableStats
	for _, acc := range a.tables {
		if !acc.dirty {
			continue
		}
		pending = append(pending, acc.stats(a.topN, now))
		acc.dirty = false
	}
	a.mu.Unlock()

	sort.Slice(pending, func(i, j int) bool { return pending[i].TableID < pending[j].TableID })

	var errs []error
	for _, s := range pending {
		err := a.store.Insert(ctx, s)
		if errors.Is(err, storage.ErrDuplicateKey) {
			err = nil
		}
		observability.RecordStatsFlush(err)
		if err != nil {
			a.markDirty(s.TableID)
			errs = append(errs, err)
			continue
		}
		a.logger.Debug("stats flushed", "table", s.TableID, "spins", s.TotalSpins)
	}
	return errors.Join(errs...)
}

func (a *Aggregator) markDirty(id string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if acc, ok := a.tables[id]; ok {
		acc.dirty = true
	}
}

// Snapshot returns the current statistics of a table.
func (a *Aggregator) Snapshot(tableID string) (*domain.TableStats, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	acc, ok := a.tables[tableID]
	if !ok {
		return nil, false
	}
	return acc.stats(a.topN, a.clock.Now().UnixMilli()), true
}

// Snapshots returns the current statistics of every table, ordered by table ID.
func (a *Aggregator) Snapshots() []*domain.TableStats {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.clock.Now().UnixMilli()
	out := make([]*domain.TableStats, 0, len(a.tables))
	for _, acc := range a.tables {
		out = append(out, acc.stats(a.topN, now))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TableID < out[j].TableID })
	return out
}
