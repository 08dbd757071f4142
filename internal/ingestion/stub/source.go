// Package stub provides a scripted ingestion.Source for tests and demos.
package stub

import (
	"context"
	"sync"

	"roulette-tracker/internal/ingestion"
)

// Source replays scripted poll rounds in order. Once the script is
// exhausted every Poll returns no readings.
// Implements ingestion.Source interface.
type Source struct {
	mu     sync.Mutex
	rounds [][]ingestion.Reading
	errs   []error
	calls  int
}

// New creates a source that returns one round per Poll.
func New(rounds ...[]ingestion.Reading) *Source {
	return &Source{rounds: rounds}
}

// Round builds a single-table round for table id.
func Round(id, name string, numbers ...any) []ingestion.Reading {
	return []ingestion.Reading{{TableID: id, TableName: name, Numbers: numbers}}
}

// FailNext makes the next Poll return err instead of a round.
func (s *Source) FailNext(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs = append(s.errs, err)
}

// Poll returns the next scripted round. Readings are copies.
func (s *Source) Poll(ctx context.Context) ([]ingestion.Reading, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++

	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		return nil, err
	}
	if len(s.rounds) == 0 {
		return nil, nil
	}

	round := s.rounds[0]
	s.rounds = s.rounds[1:]

	out := make([]ingestion.Reading, len(round))
	for i, r := range round {
		out[i] = r
		out[i].Numbers = append([]any(nil), r.Numbers...)
	}
	return out, nil
}

// Calls returns how many times Poll was called.
func (s *Source) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

var _ ingestion.Source = (*Source)(nil)
