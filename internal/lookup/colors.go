// Package lookup holds the static roulette tables used by the tracker:
// pocket colours and the terminal-numbers betting table.
package lookup

import "roulette-tracker/internal/domain"

// redNumbers is the fixed 18-member red set of a European wheel.
var redNumbers = map[int]bool{
	1: true, 3: true, 5: true, 7: true, 9: true, 12: true,
	14: true, 16: true, 18: true, 19: true, 21: true, 23: true,
	25: true, 27: true, 30: true, 32: true, 34: true, 36: true,
}

// ValidNumber reports whether n is a pocket on a single-zero wheel.
func ValidNumber(n int) bool {
	return n >= domain.MinNumber && n <= domain.MaxNumber
}

// IsRed reports whether n is a red pocket.
func IsRed(n int) bool {
	return redNumbers[n]
}

// ColorOf returns the pocket colour of n.
// Zero is green; out-of-range numbers are reported as green too, callers
// are expected to validate with ValidNumber first.
func ColorOf(n int) domain.Color {
	if n == 0 || !ValidNumber(n) {
		return domain.ColorGreen
	}
	if IsRed(n) {
		return domain.ColorRed
	}
	return domain.ColorBlack
}
