package listener

import (
	"context"

	messages "github.com/cucumber/messages/go/v21"
)

// CaseInfo holds everything a ScenarioContext needs for a new scenario.
type CaseInfo struct {
	Feature     *messages.Feature
	Scenario    *messages.Scenario
	URI         string
	Case        TestCase
	CaseID      string
	ContainerID string
}

// ScenarioContext is the mutable state of one running scenario. It is owned
// by the goroutine executing the scenario and is not safe for concurrent use.
type ScenarioContext struct {
	begun       bool
	info        CaseInfo
	locked      bool
	status      Status
	lastStepOK  *bool
	openStep    string
	openFixture string
}

// NewScenarioContext returns a context that must be started with Begin.
func NewScenarioContext() *ScenarioContext {
	return &ScenarioContext{}
}

// Begin resets the context for a new scenario and clears the lock.
func (sc *ScenarioContext) Begin(info CaseInfo) {
	*sc = ScenarioContext{begun: true, info: info}
}

// Lock forbids further status changes for the current case.
func (sc *ScenarioContext) Lock() {
	sc.mustBegin()
	sc.locked = true
}

// Locked reports whether the case status is pinned.
func (sc *ScenarioContext) Locked() bool {
	sc.mustBegin()
	return sc.locked
}

// Feature returns the feature the scenario belongs to; nil when unknown.
func (sc *ScenarioContext) Feature() *messages.Feature {
	sc.mustBegin()
	return sc.info.Feature
}

// FeatureName returns the feature name or an empty string.
func (sc *ScenarioContext) FeatureName() string {
	if feature := sc.Feature(); feature != nil {
		return feature.Name
	}
	return ""
}

// Scenario returns the scenario definition; nil when unknown.
func (sc *ScenarioContext) Scenario() *messages.Scenario {
	sc.mustBegin()
	return sc.info.Scenario
}

// URI returns the source URI of the scenario.
func (sc *ScenarioContext) URI() string {
	sc.mustBegin()
	return sc.info.URI
}

// Case returns the runner's description of the case.
func (sc *ScenarioContext) Case() TestCase {
	sc.mustBegin()
	return sc.info.Case
}

// CaseID returns the report identifier of the case.
func (sc *ScenarioContext) CaseID() string {
	sc.mustBegin()
	return sc.info.CaseID
}

// ContainerID returns the report identifier of the scenario container.
func (sc *ScenarioContext) ContainerID() string {
	sc.mustBegin()
	return sc.info.ContainerID
}

// Status returns the last status folded into the case.
func (sc *ScenarioContext) Status() Status {
	sc.mustBegin()
	return sc.status
}

// ScenarioName returns the scenario definition name, falling back to the
// runner's case name.
func (sc *ScenarioContext) ScenarioName() string {
	if scenario := sc.Scenario(); scenario != nil {
		return scenario.Name
	}
	return sc.info.Case.Name
}

// LastStepOK reports whether the most recent step or hook passed or was
// skipped. The second result is false until one finished.
func (sc *ScenarioContext) LastStepOK() (bool, bool) {
	sc.mustBegin()
	if sc.lastStepOK == nil {
		return false, false
	}
	return *sc.lastStepOK, true
}

// OpenStep returns the identifier of the step or fixture currently running.
func (sc *ScenarioContext) OpenStep() string {
	sc.mustBegin()
	if sc.openStep != "" {
		return sc.openStep
	}
	return sc.openFixture
}

func (sc *ScenarioContext) setStatus(status Status) {
	sc.mustBegin()
	sc.status = status
}

func (sc *ScenarioContext) setOpenStep(id string) {
	sc.mustBegin()
	sc.openStep = id
}

func (sc *ScenarioContext) setOpenFixture(id string) {
	sc.mustBegin()
	sc.openFixture = id
}

func (sc *ScenarioContext) setLastStepOK(ok bool) {
	sc.mustBegin()
	sc.lastStepOK = &ok
}

func (sc *ScenarioContext) mustBegin() {
	if sc == nil || !sc.begun {
		panic("listener: scenario context used before Begin")
	}
}

type scenarioKey struct{}

// WithScenario returns a context carrying sc.
func WithScenario(ctx context.Context, sc *ScenarioContext) context.Context {
	return context.WithValue(ctx, scenarioKey{}, sc)
}

// ScenarioFrom returns the scenario carried by ctx.
func ScenarioFrom(ctx context.Context) (*ScenarioContext, bool) {
	if ctx == nil {
		return nil, false
	}
	sc, ok := ctx.Value(scenarioKey{}).(*ScenarioContext)
	return sc, ok && sc != nil
}
