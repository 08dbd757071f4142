package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coder/quartz"
	"golang.org/x/sync/errgroup"

	"roulette-tracker/internal/app"
	"roulette-tracker/internal/ingestion"
	"roulette-tracker/internal/metrics"
	"roulette-tracker/internal/observability"
	"roulette-tracker/internal/sink"
	"roulette-tracker/internal/tracker"
)

const shutdownTimeout = 10 * time.Second

type RunCmd struct {
	Migrate bool `help:"Apply database migrations before starting"`
}

func (c *RunCmd) Run(g *Globals) error {
	cfg, logger, err := g.load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stores, err := app.OpenStores(ctx, cfg.Storage, c.Migrate, logger)
	if err != nil {
		return err
	}
	defer stores.Close()

	clock := quartz.NewReal()

	agg := metrics.NewAggregator(metrics.AggregatorOptions{
		Store:         stores.Stats,
		Clock:         clock,
		FlushInterval: cfg.Stats.FlushInterval,
		QueueSize:     cfg.Stats.QueueSize,
		TopN:          cfg.Stats.TopN,
		Logger:        logger,
	})
	if n, err := app.SeedAggregator(ctx, agg, stores.Stats); err != nil {
		logger.Warn("Statistics not resumed", "err", err)
	} else if n > 0 {
		logger.Info("Statistics resumed", "tables", n)
	}

	tr := tracker.New(tracker.Options{
		Clock: clock,
		Sink: tracker.MultiSink{
			sink.NewStoreSink(stores.Spins, stores.Updates, clock),
			agg,
			sink.NewLogSink(logger),
		},
		MaxCandidates: cfg.Poll.MaxCandidates,
		Logger:        logger,
	})
	n, err := app.RestoreTracker(ctx, tr, stores.Spins, stores.Updates, logger)
	if err != nil {
		return err
	}
	logger.Info("Tracker restored", "tables", n)

	source, closeSource, err := app.NewSource(ctx, cfg.Source, logger)
	if err != nil {
		return err
	}
	defer closeSource()

	runner := ingestion.NewRunner(ingestion.RunnerOptions{
		Source:     source,
		Ingester:   tr,
		Interval:   cfg.Poll.Interval,
		Clock:      clock,
		SourceName: cfg.Source.Kind,
		Logger:     logger,
	})

	started := clock.Now()
	srv := &http.Server{
		Addr:              cfg.Metrics.Addr,
		Handler:           observability.Router(healthFunc(tr, runner, clock, started, cfg.Poll.Interval), agg.Snapshots),
		ReadHeaderTimeout: 5 * time.Second,
	}

	// The aggregator is stopped only after the runner returns, so its final
	// drain covers the last poll.
	aggCtx, stopAgg := context.WithCancel(context.WithoutCancel(ctx))
	defer stopAgg()

	eg, gctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		defer stopAgg()
		return runner.Run(gctx)
	})
	eg.Go(func() error {
		return agg.Run(aggCtx)
	})
	eg.Go(func() error {
		logger.Info("Serving metrics", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	eg.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	logger.Info("Tracker started", "source", cfg.Source.Kind, "interval", cfg.Poll.Interval)
	err = eg.Wait()
	logger.Info("Shutdown complete", "cycles", runner.Cycles(), "stats_dropped", agg.Dropped())
	return err
}

// healthFunc reports "stale" once no poll has succeeded for three intervals.
func healthFunc(tr *tracker.Tracker, runner *ingestion.Runner, clock quartz.Clock, started time.Time, interval time.Duration) observability.HealthFunc {
	if interval <= 0 {
		interval = ingestion.DefaultInterval
	}
	return func() observability.Health {
		h := observability.Health{Status: "ok", Tables: len(tr.Tables())}

		last := runner.LastPollAt()
		ref := started
		if !last.IsZero() {
			h.LastPollAt = last.UnixMilli()
			ref = last
		}
		if clock.Since(ref) > 3*interval {
			h.Status = "stale"
		}
		return h
	}
}
