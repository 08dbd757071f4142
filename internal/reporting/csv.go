package reporting

import (
	"encoding/csv"
	"fmt"
	"strings"
)

// RenderCSV renders table rows as CSV string, one row per table.
func RenderCSV(rows []TableRow) (string, error) {
	var sb strings.Builder
	w := csv.NewWriter(&sb)

	header := []string{
		"table_id", "table_name", "total_spins", "red_count", "black_count", "green_count",
		"hot_numbers", "cold_numbers", "wins", "losses", "win_rate",
		"current_loss_streak", "max_consecutive_losses", "last_spin_at", "computed_at",
	}
	if err := w.Write(header); err != nil {
		return "", err
	}

	for _, r := range rows {
		record := []string{
			r.TableID,
			r.TableName,
			fmt.Sprint(r.TotalSpins),
			fmt.Sprint(r.RedCount),
			fmt.Sprint(r.BlackCount),
			fmt.Sprint(r.GreenCount),
			joinInts(r.HotNumbers, " "),
			joinInts(r.ColdNumbers, " "),
			fmt.Sprint(r.Wins),
			fmt.Sprint(r.Losses),
			fmt.Sprintf("%.6f", r.WinRate),
			fmt.Sprint(r.CurrentLossStreak),
			fmt.Sprint(r.MaxConsecutiveLosses),
			fmt.Sprint(r.LastSpinAt),
			fmt.Sprint(r.ComputedAt),
		}
		if err := w.Write(record); err != nil {
			return "", err
		}
	}

	w.Flush()
	return sb.String(), w.Error()
}
