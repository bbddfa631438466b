package live

import (
	"time"

	"cukereport/pkg/listener"
)

// ScenarioRow holds UI state for a single scenario execution.
type ScenarioRow struct {
	Index      int
	CaseID     string
	Feature    string
	Name       string
	Location   string
	Status     listener.Status
	Running    bool
	StartedAt  time.Time
	FinishedAt time.Time
}

// StatusCounts aggregates counts by status bucket.
type StatusCounts struct {
	Running int
	Done    int
	Passed  int
	Failed  int
	Broken  int
	Skipped int
}

// State captures the live UI state for a run.
type State struct {
	StartedAt time.Time
	Total     int
	Finished  bool
	LastEvent string
	Rows      []ScenarioRow
	Counts    StatusCounts
}

// Pending returns the announced scenarios not started yet.
func (s State) Pending() int {
	pending := s.Total - len(s.Rows)
	if pending < 0 {
		return 0
	}
	return pending
}
