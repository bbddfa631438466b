package listener

// Status is the report status of a case, step or fixture.
type Status string

const (
	// StatusPassed marks a successful execution.
	StatusPassed Status = "passed"
	// StatusFailed marks an assertion failure.
	StatusFailed Status = "failed"
	// StatusBroken marks an unexpected error.
	StatusBroken Status = "broken"
	// StatusSkipped marks an execution that did not run to completion.
	StatusSkipped Status = "skipped"
)

// Stage tracks where a report item is in its lifecycle.
type Stage string

const (
	StageScheduled Stage = "scheduled"
	StageRunning   Stage = "running"
	StageFinished  Stage = "finished"
)

// HookKind identifies a before or after hook.
type HookKind string

const (
	HookBefore HookKind = "BEFORE"
	HookAfter  HookKind = "AFTER"
)

// Parameter is a named value attached to a case.
type Parameter struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Label is a named classifier attached to a case.
type Label struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// StatusDetails carries the message and trace behind a status.
type StatusDetails struct {
	Message string `json:"message,omitempty"`
	Trace   string `json:"trace,omitempty"`
}

// Attachment references stored attachment content.
type Attachment struct {
	Name   string `json:"name"`
	Source string `json:"source"`
	Type   string `json:"type"`
}

// StepResult is a reported step.
type StepResult struct {
	Name          string         `json:"name"`
	Status        Status         `json:"status,omitempty"`
	StatusDetails *StatusDetails `json:"statusDetails,omitempty"`
	Stage         Stage          `json:"stage,omitempty"`
	Start         int64          `json:"start,omitempty"`
	Stop          int64          `json:"stop,omitempty"`
	Steps         []StepResult   `json:"steps,omitempty"`
	Attachments   []Attachment   `json:"attachments,omitempty"`
	Parameters    []Parameter    `json:"parameters,omitempty"`
}

// FixtureResult is a reported before or after hook.
type FixtureResult = StepResult

// TestResult is a reported case.
type TestResult struct {
	UUID          string         `json:"uuid"`
	HistoryID     string         `json:"historyId"`
	Name          string         `json:"name"`
	FullName      string         `json:"fullName,omitempty"`
	Description   string         `json:"description,omitempty"`
	Status        Status         `json:"status,omitempty"`
	StatusDetails *StatusDetails `json:"statusDetails,omitempty"`
	Stage         Stage          `json:"stage,omitempty"`
	Start         int64          `json:"start,omitempty"`
	Stop          int64          `json:"stop,omitempty"`
	Steps         []StepResult   `json:"steps,omitempty"`
	Attachments   []Attachment   `json:"attachments,omitempty"`
	Parameters    []Parameter    `json:"parameters,omitempty"`
	Labels        []Label        `json:"labels,omitempty"`
}

// Container groups the case of one scenario execution with its fixtures.
type Container struct {
	UUID     string          `json:"uuid"`
	Name     string          `json:"name,omitempty"`
	Children []string        `json:"children,omitempty"`
	Befores  []FixtureResult `json:"befores,omitempty"`
	Afters   []FixtureResult `json:"afters,omitempty"`
	Start    int64           `json:"start,omitempty"`
	Stop     int64           `json:"stop,omitempty"`
}

// RunSummary aggregates case outcomes observed by a dispatcher.
type RunSummary struct {
	Total    int
	Started  int
	Finished int
	ByStatus map[Status]int
}
