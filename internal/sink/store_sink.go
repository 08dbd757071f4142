// Package sink contains EventSink implementations.
package sink

import (
	"context"
	"errors"
	"fmt"

	"github.com/coder/quartz"

	"roulette-tracker/internal/domain"
	"roulette-tracker/internal/storage"
	"roulette-tracker/internal/tracker"
)

// StoreSink persists events through the storage interfaces.
// A duplicate key means the event was already recorded and is not an error.
type StoreSink struct {
	spins   storage.SpinStore
	updates storage.StrategyUpdateStore
	clock   quartz.Clock
}

// NewStoreSink creates a StoreSink. Either store may be nil to skip that event type.
func NewStoreSink(spins storage.SpinStore, updates storage.StrategyUpdateStore, clock quartz.Clock) *StoreSink {
	if clock == nil {
		clock = quartz.NewReal()
	}
	return &StoreSink{spins: spins, updates: updates, clock: clock}
}

var _ tracker.EventSink = (*StoreSink)(nil)

// RecordSpin implements tracker.EventSink.
func (s *StoreSink) RecordSpin(ctx context.Context, ev domain.SpinEvent) error {
	if s.spins == nil {
		return nil
	}

	spin := &domain.Spin{
		SpinID:     ev.SpinID,
		TableID:    ev.TableID,
		TableName:  ev.TableName,
		Number:     ev.Number,
		Color:      ev.Color,
		ObservedAt: ev.Timestamp,
		CreatedAt:  s.clock.Now().UnixMilli(),
	}

	if err := s.spins.Insert(ctx, spin); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
		return fmt.Errorf("store spin %s/%d: %w", ev.TableID, ev.Number, err)
	}
	return nil
}

// RecordStrategyUpdate implements tracker.EventSink.
func (s *StoreSink) RecordStrategyUpdate(ctx context.Context, u domain.StrategyUpdate) error {
	if s.updates == nil {
		return nil
	}

	if err := s.updates.Insert(ctx, &u); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
		return fmt.Errorf("store strategy update %s/%d: %w", u.TableID, u.Step, err)
	}
	return nil
}
