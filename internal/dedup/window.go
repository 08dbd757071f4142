package dedup

import "time"

// Reason explains a Check verdict.
type Reason string

// Check reasons. The rejection reasons are listed in evaluation order.
const (
	ReasonAccepted     Reason = "accepted"
	ReasonSignature    Reason = "signature"
	ReasonLastNumber   Reason = "last_number"
	ReasonSequenceHead Reason = "sequence_head"
)

// Verdict is the result of checking one candidate number.
type Verdict struct {
	Reason      Reason
	BucketStart int64 // Unix second of the signature bucket
}

// Accepted reports whether the candidate passed every check.
func (v Verdict) Accepted() bool {
	return v.Reason == ReasonAccepted
}

type signature struct {
	number      int
	bucketStart int64
}

// Window is the dedup state of a single table.
// It is not safe for concurrent use; the owner serializes access.
type Window struct {
	cfg Config

	signatures map[signature]time.Time // accepted signature -> acceptance time

	lastNumber int
	lastSeenAt time.Time
	hasLast    bool

	history []int // most recent first
	recent  []int // most recent first
}

// NewWindow creates an empty window. Zero config fields take their defaults.
func NewWindow(cfg Config) *Window {
	cfg = cfg.withDefaults()
	return &Window{
		cfg:        cfg,
		signatures: make(map[signature]time.Time),
		history:    make([]int, 0, cfg.MaxHistory),
		recent:     make([]int, 0, cfg.MaxRecentSequence),
	}
}

// Check runs the signature, last-number and sequence-head checks in order
// and reports the first one that rejects number. It does not mutate state.
func (w *Window) Check(number int, now time.Time) Verdict {
	sig := signature{number: number, bucketStart: w.cfg.BucketStart(now)}

	if at, ok := w.signatures[sig]; ok && now.Sub(at) < w.cfg.MinUpdateInterval {
		return Verdict{Reason: ReasonSignature, BucketStart: sig.bucketStart}
	}

	if w.hasLast && number == w.lastNumber && now.Sub(w.lastSeenAt) < w.cfg.MinUpdateInterval {
		return Verdict{Reason: ReasonLastNumber, BucketStart: sig.bucketStart}
	}

	if len(w.recent) > 0 && w.recent[0] == number {
		return Verdict{Reason: ReasonSequenceHead, BucketStart: sig.bucketStart}
	}

	return Verdict{Reason: ReasonAccepted, BucketStart: sig.bucketStart}
}

// Overlap reports how many of the oldest entries of window (most recent
// first) repeat the recorded recent sequence. It aligns window[i] with the
// head of the sequence at the smallest i where every overlapping entry
// matches, so window[:len(window)-Overlap(window)] holds the entries newer
// than the last accepted spin. An empty sequence overlaps nothing.
func (w *Window) Overlap(window []int) int {
	if len(w.recent) == 0 {
		return 0
	}
	for i := range window {
		if alignsAt(window[i:], w.recent) {
			return len(window) - i
		}
	}
	return 0
}

func alignsAt(tail, recent []int) bool {
	n := min(len(tail), len(recent))
	for k := 0; k < n; k++ {
		if tail[k] != recent[k] {
			return false
		}
	}
	return true
}

// Accept records number as a new spin seen at now.
func (w *Window) Accept(number int, now time.Time) {
	w.lastNumber = number
	w.lastSeenAt = now
	w.hasLast = true

	w.signatures[signature{number: number, bucketStart: w.cfg.BucketStart(now)}] = now
	w.pruneSignatures(now)

	w.history = prepend(w.history, number, w.cfg.MaxHistory)
	w.recent = prepend(w.recent, number, w.cfg.MaxRecentSequence)
}

// Seed loads previously accepted numbers (most recent first) into an empty
// window, as if the newest had been accepted at lastSeenAt.
// No signatures are recorded; persisted spin IDs cover that case.
func (w *Window) Seed(numbers []int, lastSeenAt time.Time) {
	if len(numbers) == 0 {
		return
	}

	w.lastNumber = numbers[0]
	w.lastSeenAt = lastSeenAt
	w.hasLast = true

	w.history = appendCapped(w.history[:0], numbers, w.cfg.MaxHistory)
	w.recent = appendCapped(w.recent[:0], numbers, w.cfg.MaxRecentSequence)
}

// pruneSignatures drops signatures that can no longer reject anything.
func (w *Window) pruneSignatures(now time.Time) {
	for sig, at := range w.signatures {
		if now.Sub(at) >= w.cfg.MinUpdateInterval {
			delete(w.signatures, sig)
		}
	}
}

// LastNumber returns the most recently accepted number, if any.
func (w *Window) LastNumber() (int, bool) {
	return w.lastNumber, w.hasLast
}

// LastSeenAt returns when the last number was accepted.
func (w *Window) LastSeenAt() time.Time {
	return w.lastSeenAt
}

// History returns a copy of the accepted numbers, most recent first.
func (w *Window) History() []int {
	return append([]int(nil), w.history...)
}

// RecentSequence returns a copy of the short sequence, most recent first.
func (w *Window) RecentSequence() []int {
	return append([]int(nil), w.recent...)
}

// SignatureCount returns the number of remembered signatures.
func (w *Window) SignatureCount() int {
	return len(w.signatures)
}

// prepend inserts n at the front of s, dropping the oldest entries beyond limit.
func prepend(s []int, n, limit int) []int {
	if len(s) < limit {
		s = append(s, 0)
	}
	copy(s[1:], s[:len(s)-1])
	s[0] = n
	return s
}

func appendCapped(dst, src []int, limit int) []int {
	if len(src) > limit {
		src = src[:limit]
	}
	return append(dst, src...)
}
