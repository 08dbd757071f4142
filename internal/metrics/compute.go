package metrics

import (
	"sort"

	"roulette-tracker/internal/domain"
	"roulette-tracker/internal/lookup"
)

// accumulator holds the running statistics of one table.
type accumulator struct {
	ref domain.TableRef

	total int
	freq  [domain.MaxNumber + 1]int
	red   int
	black int
	green int

	wins       int
	losses     int
	lossStreak int
	maxLosses  int

	lastSpinAt int64
	dirty      bool
}

func (a *accumulator) addSpin(ev domain.SpinEvent) {
	if !lookup.ValidNumber(ev.Number) {
		return
	}
	if ev.TableName != "" {
		a.ref.Name = ev.TableName
	}

	a.total++
	a.freq[ev.Number]++
	switch lookup.ColorOf(ev.Number) {
	case domain.ColorRed:
		a.red++
	case domain.ColorBlack:
		a.black++
	default:
		a.green++
	}
	if ev.Timestamp > a.lastSpinAt {
		a.lastSpinAt = ev.Timestamp
	}
	a.dirty = true
}

// addUpdate folds a strategy transition into the results. Wins and losses
// are taken from the machine's own counters.
func (a *accumulator) addUpdate(u domain.StrategyUpdate) {
	a.wins = u.Wins
	a.losses = u.Losses
	switch u.Outcome {
	case domain.OutcomeWin:
		a.lossStreak = 0
	case domain.OutcomeLoss:
		a.lossStreak++
		if a.lossStreak > a.maxLosses {
			a.maxLosses = a.lossStreak
		}
	}
	a.dirty = true
}

func (a *accumulator) seed(s *domain.TableStats) {
	a.ref = domain.TableRef{ID: s.TableID, Name: s.TableName}
	a.total = s.TotalSpins
	a.freq = s.Frequencies
	a.red = s.RedCount
	a.black = s.BlackCount
	a.green = s.GreenCount
	a.wins = s.Wins
	a.losses = s.Losses
	a.lossStreak = s.CurrentLossStreak
	a.maxLosses = s.MaxConsecutiveLosses
	a.lastSpinAt = s.LastSpinAt
}

func (a *accumulator) stats(topN int, computedAt int64) *domain.TableStats {
	return &domain.TableStats{
		TableID:              a.ref.ID,
		TableName:            a.ref.Name,
		TotalSpins:           a.total,
		Frequencies:          a.freq,
		RedCount:             a.red,
		BlackCount:           a.black,
		GreenCount:           a.green,
		HotNumbers:           HotNumbers(a.freq, topN),
		ColdNumbers:          ColdNumbers(a.freq, topN),
		Wins:                 a.wins,
		Losses:               a.losses,
		WinRate:              WinRate(a.wins, a.losses),
		CurrentLossStreak:    a.lossStreak,
		MaxConsecutiveLosses: a.maxLosses,
		LastSpinAt:           a.lastSpinAt,
		ComputedAt:           computedAt,
	}
}

// HotNumbers returns up to n numbers that were drawn at least once, most
// frequent first. Ties are broken by the lower number.
func HotNumbers(freq [domain.MaxNumber + 1]int, n int) []int {
	order := rankNumbers(freq, func(a, b int) bool { return a > b })
	out := make([]int, 0, n)
	for _, num := range order {
		if len(out) == n || freq[num] == 0 {
			break
		}
		out = append(out, num)
	}
	return out
}

// ColdNumbers returns the n least frequent numbers, including numbers never
// drawn. Ties are broken by the lower number.
func ColdNumbers(freq [domain.MaxNumber + 1]int, n int) []int {
	order := rankNumbers(freq, func(a, b int) bool { return a < b })
	if n > len(order) {
		n = len(order)
	}
	if n < 0 {
		n = 0
	}
	return order[:n:n]
}

func rankNumbers(freq [domain.MaxNumber + 1]int, before func(a, b int) bool) []int {
	order := make([]int, len(freq))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		fi, fj := freq[order[i]], freq[order[j]]
		if fi != fj {
			return before(fi, fj)
		}
		return order[i] < order[j]
	})
	return order
}

// WinRate returns wins / (wins + losses), or 0 when no bet was resolved.
func WinRate(wins, losses int) float64 {
	if wins+losses == 0 {
		return 0
	}
	return float64(wins) / float64(wins+losses)
}

// LossStreaks returns the trailing run of losses and the longest run of
// losses in outcomes. OutcomeNone entries do not break a run.
func LossStreaks(outcomes []domain.Outcome) (current, longest int) {
	for _, o := range outcomes {
		switch o {
		case domain.OutcomeWin:
			current = 0
		case domain.OutcomeLoss:
			current++
			if current > longest {
				longest = current
			}
		}
	}
	return current, longest
}
