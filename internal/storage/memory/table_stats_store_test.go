package memory

import (
	"context"
	"errors"
	"testing"

	"roulette-tracker/internal/domain"
	"roulette-tracker/internal/storage"
)

func TestTableStatsStore_LatestPerTable(t *testing.T) {
	store := NewTableStatsStore()
	ctx := context.Background()

	snapshots := []*domain.TableStats{
		{TableID: "b", TotalSpins: 5, ComputedAt: 1000},
		{TableID: "a", TotalSpins: 3, ComputedAt: 2000},
		{TableID: "a", TotalSpins: 1, ComputedAt: 1000},
		{TableID: "b", TotalSpins: 9, ComputedAt: 3000},
	}
	for _, s := range snapshots {
		if err := store.Insert(ctx, s); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	a, err := store.GetLatest(ctx, "a")
	if err != nil {
		t.Fatalf("GetLatest failed: %v", err)
	}
	if a.TotalSpins != 3 {
		t.Errorf("latest a TotalSpins = %d, want 3", a.TotalSpins)
	}

	all, err := store.GetAllLatest(ctx)
	if err != nil {
		t.Fatalf("GetAllLatest failed: %v", err)
	}
	if len(all) != 2 || all[0].TableID != "a" || all[1].TotalSpins != 9 {
		t.Errorf("unexpected snapshots: %+v", all)
	}
}

func TestTableStatsStore_Errors(t *testing.T) {
	store := NewTableStatsStore()
	ctx := context.Background()

	if _, err := store.GetLatest(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	s := &domain.TableStats{TableID: "a", ComputedAt: 1000}
	_ = store.Insert(ctx, s)
	if err := store.Insert(ctx, s); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}
	if err := store.Insert(ctx, &domain.TableStats{}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}
