package memory

import (
	"context"
	"sort"
	"sync"

	"roulette-tracker/internal/domain"
	"roulette-tracker/internal/storage"
)

// SpinStore is an in-memory implementation of storage.SpinStore.
type SpinStore struct {
	mu      sync.RWMutex
	data    map[string]*domain.Spin   // keyed by spin_id
	byTable map[string][]*domain.Spin // insertion order
}

// NewSpinStore creates a new in-memory spin store.
func NewSpinStore() *SpinStore {
	return &SpinStore{
		data:    make(map[string]*domain.Spin),
		byTable: make(map[string][]*domain.Spin),
	}
}

// Insert adds a new spin. Returns ErrDuplicateKey if spin_id exists.
func (s *SpinStore) Insert(_ context.Context, spin *domain.Spin) error {
	if spin == nil || spin.SpinID == "" || spin.TableID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[spin.SpinID]; exists {
		return storage.ErrDuplicateKey
	}

	// Store a copy to prevent external mutation
	spinCopy := *spin
	s.data[spin.SpinID] = &spinCopy
	s.byTable[spin.TableID] = append(s.byTable[spin.TableID], &spinCopy)
	return nil
}

// GetByTable retrieves all spins of a table, ordered by observed_at ASC.
func (s *SpinStore) GetByTable(_ context.Context, tableID string) ([]*domain.Spin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.sortedCopy(tableID, func(*domain.Spin) bool { return true }), nil
}

// GetRecent retrieves the latest limit spins of a table, most recent first.
func (s *SpinStore) GetRecent(_ context.Context, tableID string, limit int) ([]*domain.Spin, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.sortedCopy(tableID, func(*domain.Spin) bool { return true })

	var result []*domain.Spin
	for i := len(all) - 1; i >= 0 && len(result) < limit; i-- {
		result = append(result, all[i])
	}
	return result, nil
}

// GetByTimeRange retrieves spins observed within [start, end] (inclusive).
func (s *SpinStore) GetByTimeRange(_ context.Context, tableID string, start, end int64) ([]*domain.Spin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.sortedCopy(tableID, func(sp *domain.Spin) bool {
		return sp.ObservedAt >= start && sp.ObservedAt <= end
	}), nil
}

// ListTables returns every table with at least one spin, ordered by table_id.
// The name is taken from the latest spin of the table.
func (s *SpinStore) ListTables(_ context.Context) ([]domain.TableRef, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	refs := make([]domain.TableRef, 0, len(s.byTable))
	for id, spins := range s.byTable {
		latest := spins[0]
		for _, sp := range spins[1:] {
			if sp.ObservedAt >= latest.ObservedAt {
				latest = sp
			}
		}
		refs = append(refs, domain.TableRef{ID: id, Name: latest.TableName})
	}

	sort.Slice(refs, func(i, j int) bool { return refs[i].ID < refs[j].ID })
	return refs, nil
}

// sortedCopy must be called with mu held.
// Ties on observed_at keep insertion order.
func (s *SpinStore) sortedCopy(tableID string, keep func(*domain.Spin) bool) []*domain.Spin {
	var result []*domain.Spin
	for _, sp := range s.byTable[tableID] {
		if keep(sp) {
			spinCopy := *sp
			result = append(result, &spinCopy)
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].ObservedAt < result[j].ObservedAt
	})
	return result
}

// Verify interface compliance at compile time.
var _ storage.SpinStore = (*SpinStore)(nil)
