package tracker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roulette-tracker/internal/dedup"
	"roulette-tracker/internal/domain"
	"roulette-tracker/internal/lookup"
	"roulette-tracker/internal/observability"
)

type recordingSink struct {
	mu      sync.Mutex
	spins   []domain.SpinEvent
	updates []domain.StrategyUpdate
	order   []string
}

func (s *recordingSink) RecordSpin(_ context.Context, ev domain.SpinEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.spins = append(s.spins, ev)
	s.order = append(s.order, fmt.Sprintf("spin:%d", ev.Number))
	return nil
}

func (s *recordingSink) RecordStrategyUpdate(_ context.Context, u domain.StrategyUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates = append(s.updates, u)
	s.order = append(s.order, fmt.Sprintf("update:%d", u.Step))
	return nil
}

type failingSink struct{}

func (failingSink) RecordSpin(context.Context, domain.SpinEvent) error {
	return errors.New("disk full")
}

func (failingSink) RecordStrategyUpdate(context.Context, domain.StrategyUpdate) error {
	return errors.New("disk full")
}

// newTestTracker returns a tracker on a mock clock positioned at the start
// of a dedup time bucket.
func newTestTracker(t *testing.T, opts Options) (*Tracker, *quartz.Mock) {
	t.Helper()

	mClock := quartz.NewMock(t)
	now := mClock.Now()
	next := time.Unix((now.Unix()/3+1)*3, 0)
	advance(t, mClock, next.Sub(now))

	opts.Clock = mClock
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	return New(opts), mClock
}

func advance(t *testing.T, mClock *quartz.Mock, d time.Duration) {
	t.Helper()
	mClock.Advance(d).MustWait(context.Background())
}

func nums(ns ...int) []any {
	out := make([]any, len(ns))
	for i, n := range ns {
		out[i] = n
	}
	return out
}

func TestTracker_StrategyScenario(t *testing.T) {
	ctx := context.Background()
	tr, mClock := newTestTracker(t, Options{})

	// Fresh table, first spin becomes the trigger
	require.True(t, tr.Ingest(ctx, "t1", "Roulette 1", nums(17)))
	snap, ok := tr.Snapshot("t1")
	require.True(t, ok)
	assert.Equal(t, domain.StateTrigger, snap.State)
	require.NotNil(t, snap.TriggerNumber)
	assert.Equal(t, 17, *snap.TriggerNumber)

	// Miss moves to the gale bet
	advance(t, mClock, 6*time.Second)
	require.False(t, lookup.IsTerminal(17, 4))
	require.True(t, tr.Ingest(ctx, "t1", "Roulette 1", nums(4)))
	snap, _ = tr.Snapshot("t1")
	assert.Equal(t, domain.StatePostGaleNeutral, snap.State)
	require.NotNil(t, snap.PreviousTrigger)
	assert.Equal(t, 17, *snap.PreviousTrigger)
	assert.Equal(t, lookup.Terminals(17), snap.SuggestedNumbers)

	// Hit on the gale
	advance(t, mClock, 6*time.Second)
	require.True(t, lookup.IsTerminal(17, 27))
	require.True(t, tr.Ingest(ctx, "t1", "Roulette 1", nums(27)))
	snap, _ = tr.Snapshot("t1")
	assert.Equal(t, domain.StateMorto, snap.State)
	assert.Equal(t, 1, snap.Wins)

	// Any number resets the cycle
	advance(t, mClock, 6*time.Second)
	require.True(t, tr.Ingest(ctx, "t1", "Roulette 1", nums(5)))
	snap, _ = tr.Snapshot("t1")
	assert.Equal(t, domain.StateNeutral, snap.State)
	assert.Equal(t, 1, snap.Wins)
	assert.Equal(t, []int{5, 27, 4, 17}, snap.History)
}

func TestTracker_RepeatedPairAcceptedOnce(t *testing.T) {
	ctx := context.Background()
	sink := &recordingSink{}
	tr, mClock := newTestTracker(t, Options{Sink: sink})

	// The older 9 is accepted; the newer one shares its signature.
	first := tr.IngestBatch(ctx, "t1", "Roulette 1", nums(9, 9))
	assert.Equal(t, []int{9}, first.Accepted)
	assert.Equal(t, 1, first.Rejected[dedup.ReasonSignature])
	assert.Zero(t, first.Rejected[dedup.ReasonLastNumber])

	advance(t, mClock, 500*time.Millisecond)
	second := tr.IngestBatch(ctx, "t1", "Roulette 1", nums(9, 9))
	assert.False(t, second.AnyAccepted())
	assert.Equal(t, 2, second.Rejected[dedup.ReasonSignature])

	require.Len(t, sink.spins, 1)
	require.Len(t, sink.updates, 1)
	assert.Equal(t, domain.StateTrigger, sink.updates[0].State)
}

func TestTracker_LastNumberCheckAcrossBuckets(t *testing.T) {
	ctx := context.Background()
	tr, mClock := newTestTracker(t, Options{})

	advance(t, mClock, 2*time.Second)
	require.True(t, tr.Ingest(ctx, "t1", "", nums(9)))

	// Next bucket, same number, under the interval
	advance(t, mClock, 2*time.Second)
	res := tr.IngestBatch(ctx, "t1", "", nums(9))
	assert.False(t, res.AnyAccepted())
	assert.Equal(t, 1, res.Rejected[dedup.ReasonLastNumber])
}

func TestTracker_SameBucketAcceptedOnce(t *testing.T) {
	ctx := context.Background()
	sink := &recordingSink{}
	tr, mClock := newTestTracker(t, Options{Sink: sink})

	tr.Ingest(ctx, "t1", "", nums(22))
	advance(t, mClock, 2*time.Second)
	tr.Ingest(ctx, "t1", "", nums(22))

	assert.Len(t, sink.spins, 1)
}

func TestTracker_GenuineRepeatAccepted(t *testing.T) {
	ctx := context.Background()
	sink := &recordingSink{}
	tr, mClock := newTestTracker(t, Options{Sink: sink})

	require.True(t, tr.Ingest(ctx, "t1", "", nums(9)))
	advance(t, mClock, time.Second)
	require.True(t, tr.Ingest(ctx, "t1", "", nums(12)))
	advance(t, mClock, 5*time.Second)
	require.True(t, tr.Ingest(ctx, "t1", "", nums(9)))

	require.Len(t, sink.spins, 3)
	assert.NotEqual(t, sink.spins[0].SpinID, sink.spins[2].SpinID)
}

func TestTracker_UnchangedWindowSuppressed(t *testing.T) {
	ctx := context.Background()
	tr, mClock := newTestTracker(t, Options{})

	require.True(t, tr.Ingest(ctx, "t1", "", nums(9)))
	advance(t, mClock, time.Minute)

	res := tr.IngestBatch(ctx, "t1", "", nums(9))
	assert.False(t, res.AnyAccepted())
	assert.Equal(t, 1, res.Rejected[dedup.ReasonSequenceHead])
}

func TestTracker_UnchangedMultiNumberWindowSuppressed(t *testing.T) {
	ctx := context.Background()
	sink := &recordingSink{}
	tr, mClock := newTestTracker(t, Options{Sink: sink})

	first := tr.IngestBatch(ctx, "t1", "", nums(17, 4, 22))
	assert.Equal(t, []int{22, 4, 17}, first.Accepted)
	snap, _ := tr.Snapshot("t1")
	assert.Equal(t, []int{17, 4, 22}, snap.History)
	assert.Equal(t, []int{17, 4, 22}, snap.RecentSequence)

	for _, d := range []time.Duration{5 * time.Second, time.Minute} {
		advance(t, mClock, d)
		res := tr.IngestBatch(ctx, "t1", "", nums(17, 4, 22))
		assert.False(t, res.AnyAccepted(), "after %v", d)
		assert.Equal(t, 3, res.Rejected[dedup.ReasonSequenceHead], "after %v", d)
	}

	snap, _ = tr.Snapshot("t1")
	assert.Equal(t, []int{17, 4, 22}, snap.History)
	require.Len(t, sink.spins, 3)

	// One new spin on top of the same window
	advance(t, mClock, 6*time.Second)
	res := tr.IngestBatch(ctx, "t1", "", nums(9, 17, 4, 22))
	assert.Equal(t, []int{9}, res.Accepted)
	assert.Equal(t, 3, res.Rejected[dedup.ReasonSequenceHead])

	snap, _ = tr.Snapshot("t1")
	assert.Equal(t, []int{9, 17, 4, 22}, snap.History)
	assert.Equal(t, []int{9, 17, 4, 22}, snap.RecentSequence)
}

func TestTracker_WindowSlidesPastOldestEntries(t *testing.T) {
	ctx := context.Background()
	tr, mClock := newTestTracker(t, Options{})

	tr.IngestBatch(ctx, "t1", "", nums(17, 4, 22))
	advance(t, mClock, 6*time.Second)

	// The source window dropped 22 and gained 5 and 9.
	res := tr.IngestBatch(ctx, "t1", "", nums(5, 9, 17, 4))
	assert.Equal(t, []int{9, 5}, res.Accepted)

	snap, _ := tr.Snapshot("t1")
	assert.Equal(t, []int{5, 9, 17, 4, 22}, snap.History)
}

func TestTracker_BatchProcessedOldestFirst(t *testing.T) {
	ctx := context.Background()
	sink := &recordingSink{}
	tr, _ := newTestTracker(t, Options{Sink: sink})

	// 4 came out first and becomes the trigger; 17 is one of its terminals.
	require.True(t, lookup.IsTerminal(4, 17))
	res := tr.IngestBatch(ctx, "t1", "", nums(17, 4))
	assert.Equal(t, []int{4, 17}, res.Accepted)
	assert.Equal(t, []string{"spin:4", "update:1", "spin:17", "update:2"}, sink.order)

	snap, _ := tr.Snapshot("t1")
	assert.Equal(t, domain.StateMorto, snap.State)
	assert.Equal(t, 1, snap.Wins)
	assert.Equal(t, []int{17, 4}, snap.History)
}

func TestTracker_SignatureGaugeFollowsPruning(t *testing.T) {
	ctx := context.Background()
	tr, mClock := newTestTracker(t, Options{})
	remembered := func() float64 {
		var m dto.Metric
		require.NoError(t, observability.DefaultMetrics.Signatures.WithLabelValues("t-sig").Write(&m))
		return m.GetGauge().GetValue()
	}

	tr.IngestBatch(ctx, "t-sig", "", nums(12, 9))
	assert.Equal(t, 2.0, remembered())

	// Older signatures expire once the interval has passed.
	advance(t, mClock, 6*time.Second)
	tr.IngestBatch(ctx, "t-sig", "", nums(30))
	assert.Equal(t, 1.0, remembered())
}

func TestTracker_MalformedSkipped(t *testing.T) {
	ctx := context.Background()
	tr, _ := newTestTracker(t, Options{})

	res := tr.IngestBatch(ctx, "t1", "", []any{"x", 40, -1, nil, "17", 2.5})
	assert.Equal(t, []int{17}, res.Accepted)
	assert.Equal(t, 5, res.Malformed)
}

func TestTracker_AcceptedNumbersAlwaysInRange(t *testing.T) {
	ctx := context.Background()
	sink := &recordingSink{}
	tr, mClock := newTestTracker(t, Options{Sink: sink})
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 200; i++ {
		batch := make([]any, 0, 8)
		for j := 0; j < 8; j++ {
			switch rng.Intn(4) {
			case 0:
				batch = append(batch, rng.Intn(100)-30)
			case 1:
				batch = append(batch, fmt.Sprintf("%d", rng.Intn(50)))
			case 2:
				batch = append(batch, rng.Float64()*40)
			default:
				batch = append(batch, rng.Intn(37))
			}
		}
		tr.Ingest(ctx, "t1", "", batch)
		advance(t, mClock, time.Duration(rng.Intn(7000))*time.Millisecond)
	}

	snap, _ := tr.Snapshot("t1")
	for _, n := range append(snap.History, snap.RecentSequence...) {
		assert.True(t, lookup.ValidNumber(n), "history holds %d", n)
	}
	for _, ev := range sink.spins {
		assert.True(t, lookup.ValidNumber(ev.Number), "sink got %d", ev.Number)
	}
	assert.LessOrEqual(t, len(snap.History), 24)
	assert.LessOrEqual(t, len(snap.RecentSequence), 5)
}

func TestTracker_EventContents(t *testing.T) {
	ctx := context.Background()
	sink := &recordingSink{}
	tr, mClock := newTestTracker(t, Options{Sink: sink})

	tr.Ingest(ctx, "t1", "Roulette 1", nums(17))
	now := mClock.Now()

	require.Len(t, sink.spins, 1)
	spin := sink.spins[0]
	assert.Equal(t, "t1", spin.TableID)
	assert.Equal(t, "Roulette 1", spin.TableName)
	assert.Equal(t, domain.ColorBlack, spin.Color)
	assert.Equal(t, now.UnixMilli(), spin.Timestamp)
	assert.Len(t, spin.SpinID, 64)

	require.Len(t, sink.updates, 1)
	u := sink.updates[0]
	assert.Equal(t, int64(1), u.Step)
	assert.Equal(t, domain.StateNeutral, u.PreviousState)
	assert.Equal(t, domain.StateTrigger, u.State)
	require.NotNil(t, u.TriggerNumber)
	assert.Equal(t, 17, *u.TriggerNumber)
	assert.Nil(t, u.PreviousTriggerNumber)
	assert.Equal(t, lookup.Terminals(17), u.SuggestedNumbers)
	assert.Equal(t, domain.OutcomeNone, u.Outcome)
	assert.Len(t, u.UpdateID, 64)
}

func TestTracker_SinkErrorsDoNotStopTracking(t *testing.T) {
	ctx := context.Background()
	tr, mClock := newTestTracker(t, Options{Sink: failingSink{}})

	assert.True(t, tr.Ingest(ctx, "t1", "", nums(17)))
	advance(t, mClock, 6*time.Second)
	assert.True(t, tr.Ingest(ctx, "t1", "", nums(4)))

	snap, _ := tr.Snapshot("t1")
	assert.Equal(t, domain.StatePostGaleNeutral, snap.State)
}

func TestTracker_MaxCandidates(t *testing.T) {
	ctx := context.Background()
	tr, _ := newTestTracker(t, Options{MaxCandidates: 1})

	res := tr.IngestBatch(ctx, "t1", "", nums(17, 4, 22))
	assert.Equal(t, []int{17}, res.Accepted)
}

func TestTracker_EmptyTableID(t *testing.T) {
	tr, _ := newTestTracker(t, Options{})

	assert.False(t, tr.Ingest(context.Background(), "", "nameless", nums(17)))
	assert.Empty(t, tr.Tables())
}

func TestTracker_RestoreThenReportedHead(t *testing.T) {
	ctx := context.Background()
	sink := &recordingSink{}
	tr, mClock := newTestTracker(t, Options{Sink: sink})

	trigger := 17
	seenAt := mClock.Now().Add(-time.Minute).UnixMilli()
	spins := []domain.Spin{
		{TableID: "t1", Number: 17, ObservedAt: seenAt},
		{TableID: "t1", Number: 4, ObservedAt: seenAt - 30000},
		{TableID: "t1", Number: 22, ObservedAt: seenAt - 60000},
	}
	last := &domain.StrategyUpdate{
		TableID:       "t1",
		Step:          5,
		State:         domain.StateTrigger,
		TriggerNumber: &trigger,
		Wins:          2,
		Losses:        1,
	}
	require.NoError(t, tr.Restore("t1", "Roulette 1", spins, last))

	assert.False(t, tr.Ingest(ctx, "t1", "Roulette 1", nums(17)))
	assert.False(t, tr.Ingest(ctx, "t1", "Roulette 1", nums(17, 4, 22)))
	assert.Empty(t, sink.spins)

	snap, _ := tr.Snapshot("t1")
	assert.Equal(t, domain.StateTrigger, snap.State)
	assert.Equal(t, []int{17, 4, 22}, snap.History)

	// The restored machine keeps counting from where it stopped
	require.True(t, tr.Ingest(ctx, "t1", "Roulette 1", nums(27)))
	require.Len(t, sink.updates, 1)
	assert.Equal(t, int64(6), sink.updates[0].Step)
	assert.Equal(t, 3, sink.updates[0].Wins)
	assert.Equal(t, domain.StateMorto, sink.updates[0].State)
}

func TestTracker_RestoreRejectsBadState(t *testing.T) {
	tr, _ := newTestTracker(t, Options{})

	err := tr.Restore("t1", "", nil, &domain.StrategyUpdate{State: "BROKEN"})
	assert.Error(t, err)
	_, ok := tr.Snapshot("t1")
	assert.False(t, ok)

	assert.ErrorIs(t, tr.Restore("", "", nil, nil), ErrEmptyTableID)
}

func TestTracker_ConcurrentTables(t *testing.T) {
	ctx := context.Background()
	sink := &recordingSink{}
	tr, _ := newTestTracker(t, Options{Sink: sink})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("t%02d", i)
			tr.Ingest(ctx, id, "", nums(i%37, (i+1)%37))
		}(i)
	}
	wg.Wait()

	tables := tr.Tables()
	require.Len(t, tables, 16)
	assert.Equal(t, "t00", tables[0].ID)
	assert.Equal(t, "t15", tables[15].ID)
	assert.Len(t, sink.spins, 32)
}

func TestTracker_NameUpdated(t *testing.T) {
	ctx := context.Background()
	tr, _ := newTestTracker(t, Options{})

	tr.Ingest(ctx, "t1", "Old", nums(1))
	tr.Ingest(ctx, "t1", "New", nums(2))

	assert.Equal(t, []domain.TableRef{{ID: "t1", Name: "New"}}, tr.Tables())
}

func TestMultiSink(t *testing.T) {
	ctx := context.Background()
	rec := &recordingSink{}
	sink := MultiSink{failingSink{}, rec}

	err := sink.RecordSpin(ctx, domain.SpinEvent{Number: 3})
	assert.Error(t, err)
	assert.Len(t, rec.spins, 1)

	assert.NoError(t, MultiSink{NopSink{}, rec}.RecordStrategyUpdate(ctx, domain.StrategyUpdate{}))
}
