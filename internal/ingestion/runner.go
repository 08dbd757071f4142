package ingestion

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"roulette-tracker/internal/dedup"
	"roulette-tracker/internal/observability"
	"roulette-tracker/internal/tracker"
)

// DefaultInterval is the pause between poll cycles.
const DefaultInterval = 5 * time.Second

// Ingester consumes one table window. *tracker.Tracker implements it.
type Ingester interface {
	IngestBatch(ctx context.Context, tableID, tableName string, numbers []any) tracker.BatchResult
}

// Runner is the single polling loop: every cycle it polls the source once
// and ingests each table's window sequentially.
type Runner struct {
	source     Source
	ingester   Ingester
	interval   time.Duration
	clock      quartz.Clock
	sourceName string
	logger     *log.Logger

	lastPollAt atomic.Int64 // Unix milliseconds of the last successful poll
	cycles     atomic.Int64
}

// RunnerOptions contains configuration for creating a Runner.
type RunnerOptions struct {
	Source     Source
	Ingester   Ingester
	Interval   time.Duration // Default: 5s
	Clock      quartz.Clock  // Default: real clock
	SourceName string        // Metrics label, default "feed"
	Logger     *log.Logger
}

// NewRunner creates a polling runner.
func NewRunner(opts RunnerOptions) *Runner {
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	clock := opts.Clock
	if clock == nil {
		clock = quartz.NewReal()
	}

	name := opts.SourceName
	if name == "" {
		name = "feed"
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &Runner{
		source:     opts.Source,
		ingester:   opts.Ingester,
		interval:   interval,
		clock:      clock,
		sourceName: name,
		logger:     logger.WithPrefix("runner"),
	}
}

// CycleResult summarizes one poll cycle.
type CycleResult struct {
	Tables    int
	Accepted  int
	Rejected  int
	Malformed int
}

// Run polls immediately and then once per interval until ctx is cancelled.
// Poll failures are logged and the loop keeps going.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.Info("Starting polling loop", "source", r.sourceName, "interval", r.interval)

	ticker := r.clock.NewTicker(r.interval, "runner", "poll")
	defer ticker.Stop()

	for {
		if _, err := r.PollOnce(ctx); err != nil && ctx.Err() == nil {
			r.logger.Warn("Poll failed", "err", err)
		}

		select {
		case <-ctx.Done():
			r.logger.Info("Polling loop stopped", "cycles", r.cycles.Load())
			return nil
		case <-ticker.C:
		}
	}
}

// PollOnce runs a single poll cycle.
func (r *Runner) PollOnce(ctx context.Context) (CycleResult, error) {
	var res CycleResult

	start := r.clock.Now()
	readings, err := r.source.Poll(ctx)
	observability.RecordPoll(r.sourceName, r.clock.Since(start).Seconds(), err)
	if err != nil {
		return res, err
	}
	r.cycles.Add(1)
	r.lastPollAt.Store(r.clock.Now().UnixMilli())

	for _, rd := range readings {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		br := r.ingester.IngestBatch(ctx, rd.TableID, rd.TableName, rd.Numbers)
		res.Tables++
		res.Accepted += len(br.Accepted)
		res.Malformed += br.Malformed
		res.Rejected += rejectedTotal(br.Rejected)
	}

	r.logger.Debug("Poll cycle done",
		"tables", res.Tables,
		"accepted", res.Accepted,
		"rejected", res.Rejected,
		"malformed", res.Malformed,
	)
	return res, nil
}

// LastPollAt returns the time of the last successful poll, or the zero
// time if none succeeded yet.
func (r *Runner) LastPollAt() time.Time {
	ms := r.lastPollAt.Load()
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

// Cycles returns the number of successful poll cycles.
func (r *Runner) Cycles() int64 {
	return r.cycles.Load()
}

func rejectedTotal(m map[dedup.Reason]int) int {
	total := 0
	for _, n := range m {
		total += n
	}
	return total
}
