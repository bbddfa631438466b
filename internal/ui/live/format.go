package live

import (
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"cukereport/pkg/listener"
)

// formatIndex formats a scenario index.
func formatIndex(index int) string {
	return "#" + pad2(index+1)
}

// pad2 left-pads a number to two digits when needed.
func pad2(value int) string {
	if value >= 10 {
		return fmtInt(value)
	}
	return "0" + fmtInt(value)
}

// fmtInt converts an int to string.
func fmtInt(value int) string {
	return strconv.Itoa(value)
}

// truncate collapses whitespace and shortens text for display.
func truncate(text string, limit int) string {
	normalized := strings.Join(strings.Fields(text), " ")
	if len(normalized) <= limit || limit <= 3 {
		return normalized
	}
	return normalized[:limit-3] + "..."
}

// statusLabel maps statuses to display labels.
func statusLabel(status listener.Status) string {
	if status == "" {
		return "finished"
	}
	return string(status)
}

// formatStatus renders a status string for a row.
func formatStatus(row ScenarioRow, noColor bool) string {
	if row.Running {
		return stylize("running", noColor, lipgloss.Color("33"))
	}
	label := statusLabel(row.Status)
	if noColor {
		return label
	}
	return statusStyle(row.Status).Render(label)
}

// formatRowDuration returns elapsed or total time for a row.
func formatRowDuration(row ScenarioRow, now time.Time) string {
	if row.StartedAt.IsZero() {
		return ""
	}
	if !row.FinishedAt.IsZero() {
		return formatDuration(row.FinishedAt.Sub(row.StartedAt))
	}
	return formatDuration(now.Sub(row.StartedAt))
}

// formatDuration renders a rounded duration for display.
func formatDuration(duration time.Duration) string {
	if duration <= 0 {
		return "0s"
	}
	return duration.Round(100 * time.Millisecond).String()
}

// statusStyle selects a style for a given status.
func statusStyle(status listener.Status) lipgloss.Style {
	color := lipgloss.Color("244")
	switch status {
	case listener.StatusPassed:
		color = lipgloss.Color("42")
	case listener.StatusFailed:
		color = lipgloss.Color("196")
	case listener.StatusBroken:
		color = lipgloss.Color("208")
	case listener.StatusSkipped:
		color = lipgloss.Color("246")
	}
	return lipgloss.NewStyle().Foreground(color)
}
