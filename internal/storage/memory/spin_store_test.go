package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"roulette-tracker/internal/domain"
	"roulette-tracker/internal/storage"
)

func makeSpin(id, table string, number int, observedAt int64) *domain.Spin {
	return &domain.Spin{
		SpinID:     id,
		TableID:    table,
		TableName:  "Table " + table,
		Number:     number,
		Color:      domain.ColorRed,
		ObservedAt: observedAt,
		CreatedAt:  observedAt,
	}
}

func TestSpinStore_InsertAndGetByTable(t *testing.T) {
	store := NewSpinStore()
	ctx := context.Background()

	for _, sp := range []*domain.Spin{
		makeSpin("s3", "t1", 3, 3000),
		makeSpin("s1", "t1", 1, 1000),
		makeSpin("s2", "t1", 2, 2000),
		makeSpin("x1", "t2", 9, 1500),
	} {
		if err := store.Insert(ctx, sp); err != nil {
			t.Fatalf("Insert %s failed: %v", sp.SpinID, err)
		}
	}

	got, err := store.GetByTable(ctx, "t1")
	if err != nil {
		t.Fatalf("GetByTable failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 spins, got %d", len(got))
	}
	for i, want := range []int{1, 2, 3} {
		if got[i].Number != want {
			t.Errorf("spin %d: number %d, want %d", i, got[i].Number, want)
		}
	}
}

func TestSpinStore_DuplicateKey(t *testing.T) {
	store := NewSpinStore()
	ctx := context.Background()

	if err := store.Insert(ctx, makeSpin("s1", "t1", 1, 1000)); err != nil {
		t.Fatalf("first Insert failed: %v", err)
	}

	err := store.Insert(ctx, makeSpin("s1", "t1", 1, 1000))
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}
}

func TestSpinStore_InvalidInput(t *testing.T) {
	store := NewSpinStore()
	ctx := context.Background()

	if err := store.Insert(ctx, nil); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("nil spin: expected ErrInvalidInput, got %v", err)
	}
	if err := store.Insert(ctx, makeSpin("", "t1", 1, 1)); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("empty id: expected ErrInvalidInput, got %v", err)
	}
	if _, err := store.GetRecent(ctx, "t1", 0); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("zero limit: expected ErrInvalidInput, got %v", err)
	}
}

func TestSpinStore_GetRecent(t *testing.T) {
	store := NewSpinStore()
	ctx := context.Background()

	// Two spins accepted from one poll share a timestamp; the later insert is newer
	_ = store.Insert(ctx, makeSpin("a", "t1", 10, 1000))
	_ = store.Insert(ctx, makeSpin("b", "t1", 17, 2000))
	_ = store.Insert(ctx, makeSpin("c", "t1", 4, 2000))

	got, err := store.GetRecent(ctx, "t1", 2)
	if err != nil {
		t.Fatalf("GetRecent failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 spins, got %d", len(got))
	}
	if got[0].Number != 4 || got[1].Number != 17 {
		t.Errorf("got %d,%d, want 4,17", got[0].Number, got[1].Number)
	}
}

func TestSpinStore_GetByTimeRange(t *testing.T) {
	store := NewSpinStore()
	ctx := context.Background()

	for i := int64(1); i <= 5; i++ {
		_ = store.Insert(ctx, makeSpin(string(rune('a'+i)), "t1", int(i), i*1000))
	}

	got, err := store.GetByTimeRange(ctx, "t1", 2000, 4000)
	if err != nil {
		t.Fatalf("GetByTimeRange failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 spins (inclusive range), got %d", len(got))
	}
	if got[0].ObservedAt != 2000 || got[2].ObservedAt != 4000 {
		t.Errorf("range bounds wrong: %d..%d", got[0].ObservedAt, got[2].ObservedAt)
	}
}

func TestSpinStore_ListTables(t *testing.T) {
	store := NewSpinStore()
	ctx := context.Background()

	_ = store.Insert(ctx, makeSpin("1", "b", 1, 1000))
	_ = store.Insert(ctx, makeSpin("2", "a", 1, 1000))
	renamed := makeSpin("3", "a", 2, 2000)
	renamed.TableName = "Renamed"
	_ = store.Insert(ctx, renamed)

	refs, err := store.ListTables(ctx)
	if err != nil {
		t.Fatalf("ListTables failed: %v", err)
	}
	if len(refs) != 2 || refs[0].ID != "a" || refs[1].ID != "b" {
		t.Fatalf("unexpected tables: %+v", refs)
	}
	if refs[0].Name != "Renamed" {
		t.Errorf("Name = %q, want latest name", refs[0].Name)
	}
}

func TestSpinStore_ReturnsCopies(t *testing.T) {
	store := NewSpinStore()
	ctx := context.Background()

	sp := makeSpin("s1", "t1", 1, 1000)
	_ = store.Insert(ctx, sp)
	sp.Number = 36

	got, _ := store.GetByTable(ctx, "t1")
	got[0].Number = 20

	again, _ := store.GetByTable(ctx, "t1")
	if again[0].Number != 1 {
		t.Errorf("stored spin was mutated: %d", again[0].Number)
	}
}

func TestSpinStore_ConcurrentInsert(t *testing.T) {
	store := NewSpinStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = store.Insert(ctx, makeSpin(string(rune(1000+i)), "t1", i%37, int64(i)))
		}(i)
	}
	wg.Wait()

	got, _ := store.GetByTable(ctx, "t1")
	if len(got) != 50 {
		t.Errorf("expected 50 spins, got %d", len(got))
	}
}
