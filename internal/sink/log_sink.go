package sink

import (
	"context"

	"github.com/charmbracelet/log"

	"roulette-tracker/internal/domain"
	"roulette-tracker/internal/tracker"
)

// LogSink writes one structured line per event.
type LogSink struct {
	logger *log.Logger
}

// NewLogSink creates a LogSink. A nil logger uses log.Default().
func NewLogSink(logger *log.Logger) *LogSink {
	if logger == nil {
		logger = log.Default()
	}
	return &LogSink{logger: logger.WithPrefix("events")}
}

var _ tracker.EventSink = (*LogSink)(nil)

// RecordSpin implements tracker.EventSink.
func (s *LogSink) RecordSpin(_ context.Context, ev domain.SpinEvent) error {
	s.logger.Info("spin",
		"table", ev.TableID,
		"name", ev.TableName,
		"number", ev.Number,
		"color", ev.Color,
	)
	return nil
}

// RecordStrategyUpdate implements tracker.EventSink.
func (s *LogSink) RecordStrategyUpdate(_ context.Context, u domain.StrategyUpdate) error {
	kv := []any{
		"table", u.TableID,
		"step", u.Step,
		"from", u.PreviousState,
		"to", u.State,
		"wins", u.Wins,
		"losses", u.Losses,
	}
	if u.TriggerNumber != nil {
		kv = append(kv, "trigger", *u.TriggerNumber)
	}
	if u.Outcome != domain.OutcomeNone {
		kv = append(kv, "outcome", u.Outcome)
	}
	if len(u.SuggestedNumbers) > 0 {
		kv = append(kv, "suggested", u.SuggestedNumbers)
	}

	s.logger.Info("strategy", kv...)
	return nil
}
