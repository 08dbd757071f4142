package app

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roulette-tracker/internal/config"
	"roulette-tracker/internal/dedup"
	"roulette-tracker/internal/domain"
	"roulette-tracker/internal/ingestion"
	"roulette-tracker/internal/metrics"
	"roulette-tracker/internal/sink"
	"roulette-tracker/internal/tracker"
)

func TestOpenStores_Memory(t *testing.T) {
	stores, err := OpenStores(context.Background(), config.StorageConfig{UseMemory: true}, true, log.New(io.Discard))
	require.NoError(t, err)
	defer stores.Close()

	assert.NotNil(t, stores.Spins)
	assert.NotNil(t, stores.Updates)
	assert.NotNil(t, stores.Stats)
}

// A restarted tracker restored from the stores must not accept the spin
// the source is still reporting at the head of its window.
func TestRestoreTracker_RoundTrip(t *testing.T) {
	ctx := context.Background()
	logger := log.New(io.Discard)
	stores, err := OpenStores(ctx, config.StorageConfig{UseMemory: true}, false, logger)
	require.NoError(t, err)

	mClock := quartz.NewMock(t)
	first := tracker.New(tracker.Options{
		Clock:  mClock,
		Sink:   sink.NewStoreSink(stores.Spins, stores.Updates, mClock),
		Logger: logger,
	})
	require.True(t, first.Ingest(ctx, "t1", "One", []any{17}))
	mClock.Advance(6 * time.Second).MustWait(ctx)
	require.True(t, first.Ingest(ctx, "t1", "One", []any{4}))

	before, ok := first.Snapshot("t1")
	require.True(t, ok)

	second := tracker.New(tracker.Options{Clock: mClock, Logger: logger})
	n, err := RestoreTracker(ctx, second, stores.Spins, stores.Updates, logger)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	after, ok := second.Snapshot("t1")
	require.True(t, ok)
	assert.Equal(t, before.History, after.History)
	assert.Equal(t, before.State, after.State)
	assert.Equal(t, before.Step, after.Step)
	assert.Equal(t, before.TriggerNumber, after.TriggerNumber)

	mClock.Advance(6 * time.Second).MustWait(ctx)
	res := second.IngestBatch(ctx, "t1", "One", []any{4})
	assert.Empty(t, res.Accepted)
	assert.Equal(t, 1, res.Rejected[dedup.ReasonSequenceHead])
}

func TestRestoreTracker_NoUpdates(t *testing.T) {
	ctx := context.Background()
	stores, err := OpenStores(ctx, config.StorageConfig{UseMemory: true}, false, log.New(io.Discard))
	require.NoError(t, err)

	require.NoError(t, stores.Spins.Insert(ctx, &domain.Spin{SpinID: "s1", TableID: "t1", Number: 3, ObservedAt: 1000}))

	tr := tracker.New(tracker.Options{Logger: log.New(io.Discard)})
	n, err := RestoreTracker(ctx, tr, stores.Spins, stores.Updates, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	snap, ok := tr.Snapshot("t1")
	require.True(t, ok)
	assert.Equal(t, []int{3}, snap.History)
	assert.Equal(t, domain.StateNeutral, snap.State)
}

func TestSeedAggregator(t *testing.T) {
	ctx := context.Background()
	stores, err := OpenStores(ctx, config.StorageConfig{UseMemory: true}, false, log.New(io.Discard))
	require.NoError(t, err)
	require.NoError(t, stores.Stats.Insert(ctx, &domain.TableStats{TableID: "t1", TotalSpins: 7, ComputedAt: 1}))

	agg := metrics.NewAggregator(metrics.AggregatorOptions{Logger: log.New(io.Discard)})
	n, err := SeedAggregator(ctx, agg, stores.Stats)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	s, ok := agg.Snapshot("t1")
	require.True(t, ok)
	assert.Equal(t, 7, s.TotalSpins)

	n, err = SeedAggregator(ctx, agg, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestNewSource(t *testing.T) {
	ctx := context.Background()

	src, closeFn, err := NewSource(ctx, config.SourceConfig{Kind: config.SourceHTTP, URL: "http://feed"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &ingestion.HTTPSource{}, src)
	require.NoError(t, closeFn())

	src, _, err = NewSource(ctx, config.SourceConfig{Kind: config.SourceStub}, nil)
	require.NoError(t, err)
	readings, err := src.Poll(ctx)
	require.NoError(t, err)
	assert.Empty(t, readings)

	_, closeFn, err = NewSource(ctx, config.SourceConfig{Kind: "carrier-pigeon"}, nil)
	require.ErrorIs(t, err, config.ErrInvalidSourceKind)
	require.NotNil(t, closeFn)
}
