package domain

// TableStats is a point-in-time statistics snapshot for one table.
// Corresponds to the table_stats table in ClickHouse.
type TableStats struct {
	TableID   string `json:"table_id"`
	TableName string `json:"table_name"`

	// Spin distribution
	TotalSpins  int                `json:"total_spins"`
	Frequencies [MaxNumber + 1]int `json:"frequencies"` // index = roulette number
	RedCount    int                `json:"red_count"`
	BlackCount  int                `json:"black_count"`
	GreenCount  int                `json:"green_count"`
	HotNumbers  []int              `json:"hot_numbers"`  // most frequent first
	ColdNumbers []int              `json:"cold_numbers"` // least frequent first

	// Strategy results
	Wins                 int     `json:"wins"`
	Losses               int     `json:"losses"`
	WinRate              float64 `json:"win_rate"` // wins / (wins + losses)
	CurrentLossStreak    int     `json:"current_loss_streak"`
	MaxConsecutiveLosses int     `json:"max_consecutive_losses"`

	LastSpinAt int64 `json:"last_spin_at"` // Unix milliseconds
	ComputedAt int64 `json:"computed_at"`  // Unix milliseconds, snapshot version
}
