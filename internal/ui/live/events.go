package live

import (
	"time"

	"cukereport/pkg/listener"
)

// EventKind identifies the type of live UI event.
type EventKind int

const (
	// EventRunStart signals the start of a run.
	EventRunStart EventKind = iota
	// EventCaseStart signals a scenario starting.
	EventCaseStart
	// EventCaseEnd delivers the final status of a scenario.
	EventCaseEnd
	// EventRunEnd signals run completion.
	EventRunEnd
)

// Event carries a UI update payload.
type Event struct {
	Kind     EventKind
	At       time.Time
	CaseID   string
	Feature  string
	Scenario string
	URI      string
	Line     int
	Status   listener.Status
	// Total is the number of scenarios announced so far.
	Total   int
	Summary listener.RunSummary
}
