package lookup

import "roulette-tracker/internal/domain"

// rawTerminals is the terminal-numbers table as it was originally authored.
// Some rows carry a stray 37, which is not a pocket on a single-zero wheel;
// init strips every out-of-range value before the table is used.
var rawTerminals = [domain.MaxNumber + 1][]int{
	0:  {0, 1, 5, 8, 10, 11, 14, 20, 23, 26, 30, 32, 37},
	1:  {0, 1, 2, 4, 9, 11, 14, 20, 21, 30, 31, 33, 36},
	2:  {0, 2, 9, 12, 15, 18, 21, 22, 25, 28, 32, 35},
	3:  {0, 1, 3, 8, 10, 13, 16, 23, 26, 27, 33, 35, 36},
	4:  {0, 4, 5, 6, 14, 16, 17, 19, 20, 21, 24, 31, 34},
	5:  {0, 2, 3, 5, 10, 12, 15, 17, 19, 24, 25, 32, 35},
	6:  {0, 3, 6, 11, 13, 16, 24, 26, 27, 33, 34, 36, 37},
	7:  {0, 6, 7, 13, 17, 25, 27, 28, 29, 34},
	8:  {0, 7, 8, 12, 18, 22, 23, 28, 29, 30},
	9:  {0, 4, 7, 9, 15, 18, 19, 22, 29, 31},
	10: {0, 1, 5, 8, 10, 11, 14, 20, 23, 26, 30, 32, 37},
	11: {0, 1, 2, 4, 9, 11, 14, 20, 21, 30, 31, 33, 36},
	12: {0, 2, 9, 12, 15, 18, 21, 22, 25, 28, 32, 35},
	13: {0, 1, 3, 8, 10, 13, 16, 23, 26, 27, 33, 35, 36},
	14: {0, 4, 5, 6, 14, 16, 17, 19, 20, 21, 24, 31, 34},
	15: {0, 2, 3, 5, 10, 12, 15, 17, 19, 24, 25, 32, 35},
	16: {0, 3, 6, 11, 13, 16, 24, 26, 27, 33, 34, 36, 37},
	17: {0, 6, 7, 13, 17, 25, 27, 28, 29, 34},
	18: {0, 7, 8, 12, 18, 22, 23, 28, 29, 30},
	19: {0, 4, 7, 9, 15, 18, 19, 22, 29, 31},
	20: {0, 1, 5, 8, 10, 11, 14, 20, 23, 26, 30, 32, 37},
	21: {0, 1, 2, 4, 9, 11, 14, 20, 21, 30, 31, 33, 36},
	22: {0, 2, 9, 12, 15, 18, 21, 22, 25, 28, 32, 35},
	23: {0, 1, 3, 8, 10, 13, 16, 23, 26, 27, 33, 35, 36},
	24: {0, 4, 5, 6, 14, 16, 17, 19, 20, 21, 24, 31, 34},
	25: {0, 2, 3, 5, 10, 12, 15, 17, 19, 24, 25, 32, 35},
	26: {0, 3, 6, 11, 13, 16, 24, 26, 27, 33, 34, 36, 37},
	27: {0, 6, 7, 13, 17, 25, 27, 28, 29, 34},
	28: {0, 7, 8, 12, 18, 22, 23, 28, 29, 30},
	29: {0, 4, 7, 9, 15, 18, 19, 22, 29, 31},
	30: {0, 1, 5, 8, 10, 11, 14, 20, 23, 26, 30, 32, 37},
	31: {0, 1, 2, 4, 9, 11, 14, 20, 21, 30, 31, 33, 36},
	32: {0, 2, 9, 12, 15, 18, 21, 22, 25, 28, 32, 35},
	33: {0, 1, 3, 8, 10, 13, 16, 23, 26, 27, 33, 35, 36},
	34: {0, 4, 5, 6, 14, 16, 17, 19, 20, 21, 24, 31, 34},
	35: {0, 2, 3, 5, 10, 12, 15, 17, 19, 24, 25, 32, 35},
	36: {0, 3, 6, 11, 13, 16, 24, 26, 27, 33, 34, 36, 37},
}

// terminals is the sanitized table, indexed by trigger number.
var terminals [domain.MaxNumber + 1][]int

func init() {
	for n, row := range rawTerminals {
		terminals[n] = sanitize(row)
	}
}

// sanitize returns a copy of row without values outside 0..36.
func sanitize(row []int) []int {
	out := make([]int, 0, len(row))
	for _, v := range row {
		if ValidNumber(v) {
			out = append(out, v)
		}
	}
	return out
}

// Terminals returns the terminal numbers for trigger.
// Returns nil if trigger is not a valid roulette number.
// The returned slice is a copy and may be modified by the caller.
func Terminals(trigger int) []int {
	if !ValidNumber(trigger) {
		return nil
	}
	out := make([]int, len(terminals[trigger]))
	copy(out, terminals[trigger])
	return out
}

// IsTerminal reports whether n is one of the terminal numbers of trigger.
func IsTerminal(trigger, n int) bool {
	if !ValidNumber(trigger) {
		return false
	}
	for _, v := range terminals[trigger] {
		if v == n {
			return true
		}
	}
	return false
}
