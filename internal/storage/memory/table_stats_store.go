package memory

import (
	"context"
	"sort"
	"sync"

	"roulette-tracker/internal/domain"
	"roulette-tracker/internal/storage"
)

type statsKey struct {
	tableID    string
	computedAt int64
}

// TableStatsStore is an in-memory implementation of storage.TableStatsStore.
type TableStatsStore struct {
	mu     sync.RWMutex
	data   map[statsKey]*domain.TableStats
	latest map[string]*domain.TableStats // keyed by table_id
}

// NewTableStatsStore creates a new in-memory stats store.
func NewTableStatsStore() *TableStatsStore {
	return &TableStatsStore{
		data:   make(map[statsKey]*domain.TableStats),
		latest: make(map[string]*domain.TableStats),
	}
}

// Insert adds a new snapshot. Returns ErrDuplicateKey if (table_id, computed_at) exists.
func (s *TableStatsStore) Insert(_ context.Context, st *domain.TableStats) error {
	if st == nil || st.TableID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := statsKey{tableID: st.TableID, computedAt: st.ComputedAt}
	if _, exists := s.data[key]; exists {
		return storage.ErrDuplicateKey
	}

	c := copyStats(st)
	s.data[key] = c
	if cur, ok := s.latest[st.TableID]; !ok || c.ComputedAt > cur.ComputedAt {
		s.latest[st.TableID] = c
	}
	return nil
}

// GetLatest retrieves the most recent snapshot of a table.
func (s *TableStatsStore) GetLatest(_ context.Context, tableID string) (*domain.TableStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.latest[tableID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return copyStats(st), nil
}

// GetAllLatest retrieves the most recent snapshot of every table, ordered by table_id.
func (s *TableStatsStore) GetAllLatest(_ context.Context) ([]*domain.TableStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.TableStats, 0, len(s.latest))
	for _, st := range s.latest {
		result = append(result, copyStats(st))
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].TableID < result[j].TableID
	})
	return result, nil
}

func copyStats(st *domain.TableStats) *domain.TableStats {
	c := *st
	c.HotNumbers = append([]int(nil), st.HotNumbers...)
	c.ColdNumbers = append([]int(nil), st.ColdNumbers...)
	return &c
}

// Verify interface compliance at compile time.
var _ storage.TableStatsStore = (*TableStatsStore)(nil)
