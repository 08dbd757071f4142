package domain

// Valid roulette numbers on a single-zero wheel.
const (
	MinNumber = 0
	MaxNumber = 36
)

// Color is the pocket colour of a roulette number.
type Color string

// Color constants.
const (
	ColorGreen Color = "green"
	ColorRed   Color = "red"
	ColorBlack Color = "black"
)

// Spin represents an accepted roulette outcome.
// Corresponds to the spins table in PostgreSQL.
type Spin struct {
	SpinID     string // PRIMARY KEY, hash of the dedup signature
	TableID    string // opaque table identifier from the source
	TableName  string // display name
	Number     int    // 0..36
	Color      Color  // derived from Number
	ObservedAt int64  // Unix timestamp in milliseconds when the poll saw it
	CreatedAt  int64  // record creation timestamp (ms)
}

// SpinEvent is emitted to the event sink for every accepted spin.
type SpinEvent struct {
	SpinID    string
	TableID   string
	TableName string
	Number    int
	Color     Color
	Timestamp int64 // Unix milliseconds
}
