package tracker

import (
	"context"
	"errors"

	"roulette-tracker/internal/domain"
)

// EventSink receives accepted spins and strategy transitions.
type EventSink interface {
	RecordSpin(ctx context.Context, ev domain.SpinEvent) error
	RecordStrategyUpdate(ctx context.Context, u domain.StrategyUpdate) error
}

// MultiSink fans every event out to all sinks, in order.
// A failing sink does not stop delivery to the others.
type MultiSink []EventSink

// RecordSpin implements EventSink.
func (m MultiSink) RecordSpin(ctx context.Context, ev domain.SpinEvent) error {
	var errs []error
	for _, s := range m {
		if err := s.RecordSpin(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RecordStrategyUpdate implements EventSink.
func (m MultiSink) RecordStrategyUpdate(ctx context.Context, u domain.StrategyUpdate) error {
	var errs []error
	for _, s := range m {
		if err := s.RecordStrategyUpdate(ctx, u); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NopSink discards all events.
type NopSink struct{}

// RecordSpin implements EventSink.
func (NopSink) RecordSpin(context.Context, domain.SpinEvent) error { return nil }

// RecordStrategyUpdate implements EventSink.
func (NopSink) RecordStrategyUpdate(context.Context, domain.StrategyUpdate) error { return nil }

var (
	_ EventSink = MultiSink(nil)
	_ EventSink = NopSink{}
)
