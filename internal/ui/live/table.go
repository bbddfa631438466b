package live

import (
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
)

// defaultColumns returns the scenario table columns for a standard width.
func defaultColumns() []table.Column {
	return columnsForWidth(120)
}

// columnsForWidth sizes the scenario column to the terminal width.
func columnsForWidth(width int) []table.Column {
	const fixed = 5 + 10 + 10 + 28
	scenario := width - fixed - 10
	if scenario < 20 {
		scenario = 20
	}
	return []table.Column{
		{Title: "#", Width: 5},
		{Title: "Scenario", Width: scenario},
		{Title: "Location", Width: 28},
		{Title: "Status", Width: 10},
		{Title: "Time", Width: 10},
	}
}

// tableStyles returns table styles for the UI.
func tableStyles(noColor bool) table.Styles {
	styles := table.DefaultStyles()
	if noColor {
		return styles
	}
	styles.Header = styles.Header.Foreground(lipgloss.Color("252"))
	return styles
}

// rowsForState converts UI state into table rows.
func rowsForState(state State, now time.Time, noColor bool) []table.Row {
	rows := make([]table.Row, 0, len(state.Rows))
	for _, row := range state.Rows {
		name := row.Name
		if row.Feature != "" {
			name = row.Feature + ": " + row.Name
		}
		rows = append(rows, table.Row{
			formatIndex(row.Index),
			truncate(name, 80),
			truncate(row.Location, 28),
			formatStatus(row, noColor),
			formatRowDuration(row, now),
		})
	}
	return rows
}
