package sink

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roulette-tracker/internal/domain"
	"roulette-tracker/internal/storage"
	"roulette-tracker/internal/storage/memory"
)

type brokenSpinStore struct {
	storage.SpinStore
}

func (brokenSpinStore) Insert(context.Context, *domain.Spin) error {
	return errors.New("connection refused")
}

func TestStoreSink_PersistsEvents(t *testing.T) {
	ctx := context.Background()
	mClock := quartz.NewMock(t)
	spins := memory.NewSpinStore()
	updates := memory.NewStrategyUpdateStore()
	s := NewStoreSink(spins, updates, mClock)

	ev := domain.SpinEvent{SpinID: "abc", TableID: "t1", TableName: "Roulette 1", Number: 17, Color: domain.ColorBlack, Timestamp: 1704067200000}
	require.NoError(t, s.RecordSpin(ctx, ev))

	got, err := spins.GetByTable(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(1704067200000), got[0].ObservedAt)
	assert.Equal(t, mClock.Now().UnixMilli(), got[0].CreatedAt)

	u := domain.StrategyUpdate{UpdateID: "u1", TableID: "t1", Step: 1, State: domain.StateTrigger}
	require.NoError(t, s.RecordStrategyUpdate(ctx, u))

	latest, err := updates.GetLatest(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), latest.Step)
}

func TestStoreSink_DuplicateIsSuccess(t *testing.T) {
	ctx := context.Background()
	s := NewStoreSink(memory.NewSpinStore(), memory.NewStrategyUpdateStore(), nil)

	ev := domain.SpinEvent{SpinID: "abc", TableID: "t1", Number: 9}
	require.NoError(t, s.RecordSpin(ctx, ev))
	assert.NoError(t, s.RecordSpin(ctx, ev))

	u := domain.StrategyUpdate{UpdateID: "u1", TableID: "t1", Step: 1, State: domain.StateTrigger}
	require.NoError(t, s.RecordStrategyUpdate(ctx, u))
	assert.NoError(t, s.RecordStrategyUpdate(ctx, u))
}

func TestStoreSink_PropagatesOtherErrors(t *testing.T) {
	s := NewStoreSink(brokenSpinStore{}, nil, nil)

	err := s.RecordSpin(context.Background(), domain.SpinEvent{SpinID: "x", TableID: "t1"})
	assert.Error(t, err)

	// Nil update store skips updates
	assert.NoError(t, s.RecordStrategyUpdate(context.Background(), domain.StrategyUpdate{}))
}

func TestLogSink(t *testing.T) {
	var buf bytes.Buffer
	logger := log.NewWithOptions(&buf, log.Options{Formatter: log.LogfmtFormatter})
	s := NewLogSink(logger)

	trigger := 17
	require.NoError(t, s.RecordSpin(context.Background(), domain.SpinEvent{TableID: "t1", Number: 17, Color: domain.ColorBlack}))
	require.NoError(t, s.RecordStrategyUpdate(context.Background(), domain.StrategyUpdate{
		TableID:       "t1",
		Step:          1,
		State:         domain.StateTrigger,
		TriggerNumber: &trigger,
	}))

	out := buf.String()
	assert.Contains(t, out, "number=17")
	assert.Contains(t, out, "to=TRIGGER")
	assert.Contains(t, out, "trigger=17")
}
