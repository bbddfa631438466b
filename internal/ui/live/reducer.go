package live

import (
	"fmt"
	"strings"

	"cukereport/pkg/listener"
)

// Reduce applies a UI event to the state.
func Reduce(state State, event Event) State {
	if event.Total > state.Total {
		state.Total = event.Total
	}
	switch event.Kind {
	case EventRunStart:
		if state.StartedAt.IsZero() {
			state.StartedAt = event.At
		}
		state.LastEvent = "run started"
	case EventCaseStart:
		state.Rows = append(state.Rows, ScenarioRow{
			Index:     len(state.Rows),
			CaseID:    event.CaseID,
			Feature:   event.Feature,
			Name:      event.Scenario,
			Location:  formatLocation(event.URI, event.Line),
			Running:   true,
			StartedAt: event.At,
		})
	case EventCaseEnd:
		idx := findRow(state.Rows, event.CaseID)
		if idx < 0 {
			return state
		}
		rows := make([]ScenarioRow, len(state.Rows))
		copy(rows, state.Rows)
		row := rows[idx]
		row.Running = false
		row.Status = event.Status
		row.FinishedAt = event.At
		rows[idx] = row
		state.Rows = rows
		state.LastEvent = formatCaseEnd(row)
	case EventRunEnd:
		state.Finished = true
		state.LastEvent = formatRunEnd(event.Summary)
	}
	state.Counts = recount(state.Rows)
	return state
}

// findRow locates the latest row for a case id.
func findRow(rows []ScenarioRow, caseID string) int {
	for i := len(rows) - 1; i >= 0; i-- {
		if rows[i].CaseID == caseID && rows[i].Running {
			return i
		}
	}
	return -1
}

// recount recomputes status counts for the current rows.
func recount(rows []ScenarioRow) StatusCounts {
	var counts StatusCounts
	for _, row := range rows {
		if row.Running {
			counts.Running++
			continue
		}
		counts.Done++
		switch row.Status {
		case listener.StatusPassed:
			counts.Passed++
		case listener.StatusFailed:
			counts.Failed++
		case listener.StatusBroken:
			counts.Broken++
		case listener.StatusSkipped:
			counts.Skipped++
		}
	}
	return counts
}

func formatLocation(uri string, line int) string {
	if uri == "" {
		return ""
	}
	if line <= 0 {
		return uri
	}
	return fmt.Sprintf("%s:%d", uri, line)
}

// formatCaseEnd creates a short footer message for a finished scenario.
func formatCaseEnd(row ScenarioRow) string {
	status := statusLabel(row.Status)
	return strings.TrimSpace(fmt.Sprintf("%s %s", row.Name, status))
}

func formatRunEnd(summary listener.RunSummary) string {
	return fmt.Sprintf("run finished: %d/%d scenarios, %d passed", summary.Finished, summary.Total, summary.ByStatus[listener.StatusPassed])
}
