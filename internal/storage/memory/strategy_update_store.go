package memory

import (
	"context"
	"sort"
	"sync"

	"roulette-tracker/internal/domain"
	"roulette-tracker/internal/storage"
)

// StrategyUpdateStore is an in-memory implementation of storage.StrategyUpdateStore.
type StrategyUpdateStore struct {
	mu      sync.RWMutex
	ids     map[string]struct{}
	byTable map[string][]*domain.StrategyUpdate
}

// NewStrategyUpdateStore creates a new in-memory strategy update store.
func NewStrategyUpdateStore() *StrategyUpdateStore {
	return &StrategyUpdateStore{
		ids:     make(map[string]struct{}),
		byTable: make(map[string][]*domain.StrategyUpdate),
	}
}

// Insert adds a new update. Returns ErrDuplicateKey if update_id exists.
func (s *StrategyUpdateStore) Insert(_ context.Context, u *domain.StrategyUpdate) error {
	if u == nil || u.UpdateID == "" || u.TableID == "" || !u.State.Valid() {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.ids[u.UpdateID]; exists {
		return storage.ErrDuplicateKey
	}

	s.ids[u.UpdateID] = struct{}{}
	s.byTable[u.TableID] = append(s.byTable[u.TableID], copyUpdate(u))
	return nil
}

// GetLatest retrieves the update with the highest step for a table.
func (s *StrategyUpdateStore) GetLatest(_ context.Context, tableID string) (*domain.StrategyUpdate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *domain.StrategyUpdate
	for _, u := range s.byTable[tableID] {
		if latest == nil || u.Step > latest.Step {
			latest = u
		}
	}
	if latest == nil {
		return nil, storage.ErrNotFound
	}
	return copyUpdate(latest), nil
}

// GetByTable retrieves all updates of a table, ordered by step ASC.
func (s *StrategyUpdateStore) GetByTable(_ context.Context, tableID string) ([]*domain.StrategyUpdate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.StrategyUpdate, 0, len(s.byTable[tableID]))
	for _, u := range s.byTable[tableID] {
		result = append(result, copyUpdate(u))
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Step < result[j].Step
	})
	return result, nil
}

// copyUpdate deep-copies pointer and slice fields.
func copyUpdate(u *domain.StrategyUpdate) *domain.StrategyUpdate {
	c := *u
	if u.TriggerNumber != nil {
		v := *u.TriggerNumber
		c.TriggerNumber = &v
	}
	if u.PreviousTriggerNumber != nil {
		v := *u.PreviousTriggerNumber
		c.PreviousTriggerNumber = &v
	}
	c.SuggestedNumbers = append([]int(nil), u.SuggestedNumbers...)
	return &c
}

// Verify interface compliance at compile time.
var _ storage.StrategyUpdateStore = (*StrategyUpdateStore)(nil)
