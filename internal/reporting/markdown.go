package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Roulette Tracker Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Tables: %d\n\n", r.TableCount))

	// Summary
	sb.WriteString("## Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Total Spins | %d |\n", r.Summary.TotalSpins))
	sb.WriteString(fmt.Sprintf("| Wins | %d |\n", r.Summary.Wins))
	sb.WriteString(fmt.Sprintf("| Losses | %d |\n", r.Summary.Losses))
	sb.WriteString(fmt.Sprintf("| Win Rate | %.4f |\n", r.Summary.WinRate))
	sb.WriteString(fmt.Sprintf("| Last Spin | %s |\n", formatMillis(r.Summary.LastSpinAt)))
	sb.WriteString("\n")

	if len(r.IntegrityErrors) > 0 {
		sb.WriteString("### Integrity Errors\n\n")
		for _, err := range r.IntegrityErrors {
			sb.WriteString(fmt.Sprintf("- %s\n", err))
		}
		sb.WriteString("\n")
	}

	// Tables
	sb.WriteString("## Tables\n\n")
	if len(r.Tables) > 0 {
		sb.WriteString("| Table | Name | Spins | Red | Black | Green | Hot | Cold | Wins | Losses | WinRate | LossStreak | MaxLoss |\n")
		sb.WriteString("|-------|------|-------|-----|-------|-------|-----|------|------|--------|---------|------------|---------|\n")
		for _, t := range r.Tables {
			sb.WriteString(fmt.Sprintf("| %s | %s | %d | %d | %d | %d | %s | %s | %d | %d | %.4f | %d | %d |\n",
				t.TableID, escapePipe(t.TableName), t.TotalSpins,
				t.RedCount, t.BlackCount, t.GreenCount,
				joinInts(t.HotNumbers, " "), joinInts(t.ColdNumbers, " "),
				t.Wins, t.Losses, t.WinRate, t.CurrentLossStreak, t.MaxConsecutiveLosses))
		}
	} else {
		sb.WriteString("No table statistics available.\n")
	}
	sb.WriteString("\n")

	// Numbers
	sb.WriteString("## Number Frequencies\n\n")
	if len(r.Numbers) > 0 {
		sb.WriteString("| Number | Color | Count | Share |\n")
		sb.WriteString("|--------|-------|-------|-------|\n")
		for _, n := range r.Numbers {
			sb.WriteString(fmt.Sprintf("| %d | %s | %d | %.4f |\n", n.Number, n.Color, n.Count, n.Share))
		}
	} else {
		sb.WriteString("No spins recorded.\n")
	}
	sb.WriteString("\n")

	// Backtests
	sb.WriteString("## Strategy Backtest\n\n")
	if len(r.Backtests) > 0 {
		sb.WriteString("| Table | Name | Spins | Cycles | Wins | Losses | WinRate | MaxLoss | Final State |\n")
		sb.WriteString("|-------|------|-------|--------|------|--------|---------|---------|-------------|\n")
		for _, b := range r.Backtests {
			sb.WriteString(fmt.Sprintf("| %s | %s | %d | %d | %d | %d | %.4f | %d | %s |\n",
				b.TableID, escapePipe(b.TableName), b.Spins, b.Cycles,
				b.Wins, b.Losses, b.WinRate, b.MaxConsecutiveLosses, b.FinalState))
		}
	} else {
		sb.WriteString("No stored spins to backtest.\n")
	}
	sb.WriteString("\n")

	return sb.String()
}

func formatMillis(ms int64) string {
	if ms == 0 {
		return "-"
	}
	return time.UnixMilli(ms).UTC().Format(time.RFC3339)
}

func escapePipe(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}

func joinInts(ns []int, sep string) string {
	parts := make([]string, len(ns))
	for i, n := range ns {
		parts[i] = fmt.Sprint(n)
	}
	return strings.Join(parts, sep)
}
