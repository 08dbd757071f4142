// Package dedup decides which numbers reported by a polling source are new spins.
//
// A source like a casino lobby API returns the same short "last N numbers"
// window on every poll. Window keeps the per-table memory needed to tell a
// fresh spin from a re-report.
package dedup

import "time"

// Config holds the suppression constants.
type Config struct {
	MinUpdateInterval time.Duration // signature and last-number memory
	BucketWidth       time.Duration // signature time bucket
	MaxHistory        int           // accepted numbers kept in history
	MaxRecentSequence int           // accepted numbers kept for the head check
}

// DefaultConfig returns the constants used in production.
func DefaultConfig() Config {
	return Config{
		MinUpdateInterval: 5 * time.Second,
		BucketWidth:       3 * time.Second,
		MaxHistory:        24,
		MaxRecentSequence: 5,
	}
}

// withDefaults fills zero fields from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MinUpdateInterval <= 0 {
		c.MinUpdateInterval = d.MinUpdateInterval
	}
	if c.BucketWidth < time.Second {
		c.BucketWidth = d.BucketWidth
	}
	if c.MaxHistory <= 0 {
		c.MaxHistory = d.MaxHistory
	}
	if c.MaxRecentSequence <= 0 {
		c.MaxRecentSequence = d.MaxRecentSequence
	}
	return c
}

// BucketStart returns the Unix second opening the time bucket that contains t.
func (c Config) BucketStart(t time.Time) int64 {
	width := int64(c.withDefaults().BucketWidth / time.Second)
	sec := t.Unix()
	bucket := sec / width
	if sec < 0 && sec%width != 0 {
		bucket--
	}
	return bucket * width
}
