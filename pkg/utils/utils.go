// Package utils holds small formatting helpers shared by the CLI and reports.
package utils

import "fmt"

// FormatDuration renders a millisecond duration as "1h 05m", "12m" or "45s".
func FormatDuration(ms int64) string {
	if ms < 0 {
		ms = -ms
	}
	seconds := ms / 1000
	switch {
	case seconds >= 3600:
		return fmt.Sprintf("%dh %02dm", seconds/3600, (seconds%3600)/60)
	case seconds >= 60:
		return fmt.Sprintf("%dm", seconds/60)
	default:
		return fmt.Sprintf("%ds", seconds)
	}
}

// Percent renders a [0,1] score as a whole percentage.
func Percent(score float64) string {
	return fmt.Sprintf("%.0f%%", score*100)
}

// Truncate shortens s to at most maxLen runes, marking the cut with "...".
func Truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
