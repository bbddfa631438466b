package listener

import (
	"time"

	messages "github.com/cucumber/messages/go/v21"
)

// EventKind identifies the type of a runner event.
type EventKind int

const (
	// EventRunStarted signals the start of a test run.
	EventRunStarted EventKind = iota
	// EventSourceRead delivers raw feature source text.
	EventSourceRead
	// EventSourceParsed delivers the pickles compiled from a source.
	EventSourceParsed
	// EventCaseStarted signals the start of a scenario execution.
	EventCaseStarted
	// EventCaseFinished signals the end of a scenario execution.
	EventCaseFinished
	// EventStepStarted signals the start of a step or hook.
	EventStepStarted
	// EventStepFinished signals the end of a step or hook.
	EventStepFinished
	// EventWrite delivers free text written by step code.
	EventWrite
	// EventEmbed delivers binary content embedded by step code.
	EventEmbed
	// EventRunFinished signals the end of a test run.
	EventRunFinished
)

var eventKindNames = map[EventKind]string{
	EventRunStarted:   "run_started",
	EventSourceRead:   "source_read",
	EventSourceParsed: "source_parsed",
	EventCaseStarted:  "case_started",
	EventCaseFinished: "case_finished",
	EventStepStarted:  "step_started",
	EventStepFinished: "step_finished",
	EventWrite:        "write",
	EventEmbed:        "embed",
	EventRunFinished:  "run_finished",
}

// String returns the snake_case name of the kind.
func (k EventKind) String() string {
	if name, ok := eventKindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Event is one entry of the runner's event stream.
type Event interface {
	Kind() EventKind
}

// TestCase describes the scenario execution an event belongs to.
type TestCase struct {
	// ID is the runner's own identifier for the execution.
	ID   string
	URI  string
	Line int
	Name string
	Tags []string
	// Steps lists "<keyword><text>" lines used for logging.
	Steps []string
	// Examples overrides the example tables resolved from the source.
	Examples []ExampleTable
}

// PickleStep is an executed scenario step.
type PickleStep struct {
	Text      string
	Line      int
	DataTable [][]string
}

// HookStep is an executed before or after hook.
type HookStep struct {
	Kind         HookKind
	CodeLocation string
}

// RunStarted is emitted once before any source is read.
type RunStarted struct {
	Time time.Time
}

// SourceRead carries the raw text of a feature file.
type SourceRead struct {
	URI    string
	Source []byte
}

// SourceParsed carries the pickles compiled from a feature file.
type SourceParsed struct {
	URI     string
	Pickles []*messages.Pickle
}

// CaseStarted opens a scenario execution.
type CaseStarted struct {
	Case TestCase
	Time time.Time
}

// CaseFinished closes a scenario execution.
type CaseFinished struct {
	Case    TestCase
	Outcome Outcome
	Err     error
	Time    time.Time
}

// StepStarted opens a step or a hook. Exactly one of Step and Hook is set.
type StepStarted struct {
	Step *PickleStep
	Hook *HookStep
	Time time.Time
}

// StepFinished closes a step or a hook. Exactly one of Step and Hook is set.
type StepFinished struct {
	Step    *PickleStep
	Hook    *HookStep
	Outcome Outcome
	Err     error
	Time    time.Time
}

// Write carries free text written during a scenario.
type Write struct {
	Text string
}

// Embed carries binary content embedded during a scenario.
type Embed struct {
	Name      string
	MediaType string
	Data      []byte
}

// RunFinished is emitted once after every case finished.
type RunFinished struct {
	Time time.Time
}

func (RunStarted) Kind() EventKind   { return EventRunStarted }
func (SourceRead) Kind() EventKind   { return EventSourceRead }
func (SourceParsed) Kind() EventKind { return EventSourceParsed }
func (CaseStarted) Kind() EventKind  { return EventCaseStarted }
func (CaseFinished) Kind() EventKind { return EventCaseFinished }
func (StepStarted) Kind() EventKind  { return EventStepStarted }
func (StepFinished) Kind() EventKind { return EventStepFinished }
func (Write) Kind() EventKind        { return EventWrite }
func (Embed) Kind() EventKind        { return EventEmbed }
func (RunFinished) Kind() EventKind  { return EventRunFinished }
