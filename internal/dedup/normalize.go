package dedup

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"roulette-tracker/internal/domain"
)

// Normalization errors.
var (
	ErrNotNumeric = errors.New("value is not an integer")
	ErrOutOfRange = errors.New("number out of range")
)

// Normalize converts a raw value reported by a source into a roulette number.
// Accepted inputs are integer kinds, integral floats, json.Number and
// numeric strings (surrounding whitespace is ignored).
func Normalize(raw any) (int, error) {
	var n int64

	switch v := raw.(type) {
	case int:
		n = int64(v)
	case int8:
		n = int64(v)
	case int16:
		n = int64(v)
	case int32:
		n = int64(v)
	case int64:
		n = v
	case uint:
		if uint64(v) > math.MaxInt64 {
			return 0, fmt.Errorf("%w: %d", ErrOutOfRange, v)
		}
		n = int64(v)
	case uint8:
		n = int64(v)
	case uint16:
		n = int64(v)
	case uint32:
		n = int64(v)
	case uint64:
		if v > math.MaxInt64 {
			return 0, fmt.Errorf("%w: %d", ErrOutOfRange, v)
		}
		n = int64(v)
	case float32:
		return normalizeFloat(float64(v))
	case float64:
		return normalizeFloat(v)
	case json.Number:
		return normalizeString(string(v))
	case string:
		return normalizeString(v)
	default:
		return 0, fmt.Errorf("%w: %T", ErrNotNumeric, raw)
	}

	return checkRange(n)
}

func normalizeFloat(f float64) (int, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, fmt.Errorf("%w: %v", ErrNotNumeric, f)
	}
	if f < math.MinInt32 || f > math.MaxInt32 {
		return 0, fmt.Errorf("%w: %v", ErrOutOfRange, f)
	}
	return checkRange(int64(f))
}

func normalizeString(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty string", ErrNotNumeric)
	}

	n, err := strconv.ParseInt(s, 10, 64)
	if err == nil {
		return checkRange(n)
	}

	// Some feeds send "17.0"
	f, ferr := strconv.ParseFloat(s, 64)
	if ferr != nil {
		return 0, fmt.Errorf("%w: %q", ErrNotNumeric, s)
	}
	return normalizeFloat(f)
}

func checkRange(n int64) (int, error) {
	if n < domain.MinNumber || n > domain.MaxNumber {
		return 0, fmt.Errorf("%w: %d", ErrOutOfRange, n)
	}
	return int(n), nil
}
