package metrics

import (
	"reflect"
	"testing"

	"roulette-tracker/internal/domain"
)

func TestHotNumbers(t *testing.T) {
	var freq [domain.MaxNumber + 1]int
	freq[17] = 4
	freq[3] = 2
	freq[9] = 2
	freq[0] = 1

	got := HotNumbers(freq, 3)
	want := []int{17, 3, 9}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("HotNumbers = %v, want %v", got, want)
	}

	// Only drawn numbers qualify.
	got = HotNumbers(freq, 10)
	want = []int{17, 3, 9, 0}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("HotNumbers(10) = %v, want %v", got, want)
	}
}

func TestColdNumbers(t *testing.T) {
	var freq [domain.MaxNumber + 1]int
	for i := range freq {
		freq[i] = 1
	}
	freq[5] = 0
	freq[30] = 0
	freq[0] = 3

	got := ColdNumbers(freq, 4)
	want := []int{5, 30, 1, 2}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ColdNumbers = %v, want %v", got, want)
	}

	if got := ColdNumbers(freq, 100); len(got) != domain.MaxNumber+1 {
		t.Fatalf("ColdNumbers(100) len = %d, want %d", len(got), domain.MaxNumber+1)
	}
}

func TestWinRate(t *testing.T) {
	tests := []struct {
		wins, losses int
		want         float64
	}{
		{0, 0, 0},
		{1, 0, 1},
		{1, 1, 0.5},
		{3, 1, 0.75},
	}
	for _, tt := range tests {
		if got := WinRate(tt.wins, tt.losses); got != tt.want {
			t.Errorf("WinRate(%d, %d) = %v, want %v", tt.wins, tt.losses, got, tt.want)
		}
	}
}

func TestLossStreaks(t *testing.T) {
	W, L, N := domain.OutcomeWin, domain.OutcomeLoss, domain.OutcomeNone

	tests := []struct {
		name        string
		outcomes    []domain.Outcome
		wantCurrent int
		wantMax     int
	}{
		{"empty", nil, 0, 0},
		{"only wins", []domain.Outcome{W, W}, 0, 0},
		{"trailing losses", []domain.Outcome{W, L, L}, 2, 2},
		{"broken run", []domain.Outcome{L, L, L, W, L}, 1, 3},
		{"none does not break", []domain.Outcome{L, N, N, L, W}, 0, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cur, longest := LossStreaks(tt.outcomes)
			if cur != tt.wantCurrent || longest != tt.wantMax {
				t.Fatalf("LossStreaks = (%d, %d), want (%d, %d)", cur, longest, tt.wantCurrent, tt.wantMax)
			}
		})
	}
}

func TestAccumulator_IgnoresInvalidNumbers(t *testing.T) {
	acc := &accumulator{ref: domain.TableRef{ID: "t1"}}
	acc.addSpin(domain.SpinEvent{TableID: "t1", Number: 37})
	acc.addSpin(domain.SpinEvent{TableID: "t1", Number: -1})
	if acc.total != 0 || acc.dirty {
		t.Fatalf("invalid numbers were counted: total=%d dirty=%v", acc.total, acc.dirty)
	}
}
