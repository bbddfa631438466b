package listener

import (
	"errors"
	"fmt"
	"strings"
)

// Outcome is the raw result a runner reports for a step, hook or case.
type Outcome string

const (
	OutcomePassed    Outcome = "passed"
	OutcomeFailed    Outcome = "failed"
	OutcomeAmbiguous Outcome = "ambiguous"
	OutcomePending   Outcome = "pending"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeUndefined Outcome = "undefined"
	OutcomeError     Outcome = "error"
	OutcomeUnknown   Outcome = "unknown"
)

// ParseOutcome maps a runner status string to an Outcome.
// Unrecognised values map to OutcomeUnknown.
func ParseOutcome(value string) Outcome {
	switch outcome := Outcome(strings.ToLower(strings.TrimSpace(value))); outcome {
	case OutcomePassed, OutcomeFailed, OutcomeAmbiguous, OutcomePending,
		OutcomeSkipped, OutcomeUndefined, OutcomeError:
		return outcome
	default:
		return OutcomeUnknown
	}
}

// IsOK reports whether the outcome lets the scenario continue normally.
func (o Outcome) IsOK() bool {
	return o == OutcomePassed || o == OutcomeSkipped
}

// Warning messages attached to cases that hit lenient outcomes.
const (
	UndefinedStepMessage = "Undefined Step. Please add step definition"
	AmbiguousStepMessage = "Undefined Step. Step text matches more than one definition"
)

// ErrAssertion marks an error as an assertion failure when wrapped.
var ErrAssertion = errors.New("assertion failed")

// AssertionError is an assertion failure raised by step code.
type AssertionError struct {
	Message string
}

func (e *AssertionError) Error() string {
	return e.Message
}

// AssertionFailure marks AssertionError for classifiers.
func (e *AssertionError) AssertionFailure() bool {
	return true
}

// ErrorClassifier decides whether an error is an assertion failure.
type ErrorClassifier interface {
	IsAssertion(err error) bool
}

// ClassifierFunc adapts a function to ErrorClassifier.
type ClassifierFunc func(err error) bool

// IsAssertion calls f(err).
func (f ClassifierFunc) IsAssertion(err error) bool {
	return f(err)
}

// DefaultClassifier recognises ErrAssertion, *AssertionError and errors
// exposing AssertionFailure() bool anywhere in their chain.
var DefaultClassifier ErrorClassifier = ClassifierFunc(func(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrAssertion) {
		return true
	}
	var marker interface{ AssertionFailure() bool }
	if errors.As(err, &marker) {
		return marker.AssertionFailure()
	}
	return false
})

// Aggregator translates outcomes into report statuses and folds them into
// the owning case.
type Aggregator struct {
	classifier ErrorClassifier
}

// NewAggregator creates an Aggregator. A nil classifier uses DefaultClassifier.
func NewAggregator(classifier ErrorClassifier) *Aggregator {
	if classifier == nil {
		classifier = DefaultClassifier
	}
	return &Aggregator{classifier: classifier}
}

// Translate maps an outcome to a report status. The boolean is false when
// the outcome produces no status (ambiguous, undefined, error, unknown).
func (a *Aggregator) Translate(outcome Outcome, err error) (Status, bool) {
	switch outcome {
	case OutcomeFailed:
		if err == nil || a.classifier.IsAssertion(err) {
			return StatusFailed, true
		}
		return StatusBroken, true
	case OutcomePassed:
		return StatusPassed, true
	case OutcomeSkipped, OutcomePending:
		return StatusSkipped, true
	default:
		return "", false
	}
}

// Fold records status on the case unless the case is locked. A non-passed
// status locks the case. It reports whether the status was recorded.
func (a *Aggregator) Fold(sc *ScenarioContext, status Status) bool {
	if sc.Locked() {
		return false
	}
	sc.setStatus(status)
	if status != StatusPassed {
		sc.Lock()
	}
	return true
}

// StepVerdict describes how a finished step affects the report.
type StepVerdict struct {
	// Status is the step's own status; empty when the outcome has none.
	Status  Status
	Details *StatusDetails
	// CaseStatus is the status recorded on the case; empty when unchanged.
	CaseStatus Status
	// CaseDetails is a warning to attach to the case, if any.
	CaseDetails *StatusDetails
}

// FoldStep folds a finished scenario step into its case. Undefined and
// ambiguous steps get no status of their own; the case stays passed and
// carries a warning unless it is already locked.
func (a *Aggregator) FoldStep(sc *ScenarioContext, outcome Outcome, err error) StepVerdict {
	sc.setLastStepOK(outcome.IsOK())
	var verdict StepVerdict
	switch outcome {
	case OutcomeUndefined, OutcomeAmbiguous:
		warning := lenientWarning(outcome, err)
		verdict.Details = warning
		if !sc.Locked() {
			verdict.CaseDetails = warning
		}
		if a.Fold(sc, StatusPassed) {
			verdict.CaseStatus = StatusPassed
		}
		return verdict
	}
	verdict.Details = DetailsFor(err)
	status, ok := a.Translate(outcome, err)
	if !ok {
		return verdict
	}
	verdict.Status = status
	if a.Fold(sc, status) {
		verdict.CaseStatus = status
	}
	return verdict
}

// HookVerdict describes how a finished hook affects the report.
type HookVerdict struct {
	// Status is the fixture's own status; empty when the outcome has none.
	Status     Status
	Details    *StatusDetails
	CaseStatus Status
}

// FoldHook folds a finished hook into its case. A failing before hook
// forces the case to skipped, a failing after hook forces it to broken.
func (a *Aggregator) FoldHook(sc *ScenarioContext, kind HookKind, outcome Outcome, err error) HookVerdict {
	sc.setLastStepOK(outcome.IsOK())
	status, _ := a.Translate(outcome, err)
	verdict := HookVerdict{Status: status}
	if status == StatusPassed {
		return verdict
	}
	details := DetailsFor(err)
	if details == nil {
		details = &StatusDetails{}
	}
	if err == nil {
		details.Message = string(kind) + " is failed."
	} else {
		details.Message = string(kind) + " is failed: " + err.Error()
	}
	verdict.Details = details

	caseStatus := StatusBroken
	if kind == HookBefore {
		caseStatus = StatusSkipped
	}
	if a.Fold(sc, caseStatus) {
		verdict.CaseStatus = caseStatus
	}
	sc.Lock()
	return verdict
}

// FoldCase folds the final case outcome. Locked cases keep their status.
func (a *Aggregator) FoldCase(sc *ScenarioContext, outcome Outcome, err error) (Status, bool) {
	status, ok := a.Translate(outcome, err)
	switch outcome {
	case OutcomeUndefined, OutcomeAmbiguous:
		status, ok = StatusPassed, true
	}
	if !ok {
		return "", false
	}
	if !a.Fold(sc, status) {
		return "", false
	}
	return status, true
}

// DetailsFor builds status details from err; nil when err is nil.
func DetailsFor(err error) *StatusDetails {
	if err == nil {
		return nil
	}
	return &StatusDetails{
		Message: err.Error(),
		Trace:   fmt.Sprintf("%+v", err),
	}
}

// lenientWarning builds the warning attached for undefined and ambiguous steps.
func lenientWarning(outcome Outcome, err error) *StatusDetails {
	message := UndefinedStepMessage
	if outcome == OutcomeAmbiguous {
		message = AmbiguousStepMessage
	}
	details := &StatusDetails{Message: message}
	if err != nil {
		details.Trace = fmt.Sprintf("%+v", err)
	}
	return details
}
