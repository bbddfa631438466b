package listener

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNoScenario is returned for scenario events on a context that
	// carries no started scenario.
	ErrNoScenario = errors.New("listener: no scenario in context")
	// ErrUnknownEvent is returned for events without a registered handler.
	ErrUnknownEvent = errors.New("listener: unknown event")
	// ErrEmptyStep is returned for step events with neither step nor hook.
	ErrEmptyStep = errors.New("listener: step event without step or hook")
)

type handlerFunc func(d *Dispatcher, ctx context.Context, ev Event) (context.Context, error)

// handlers is the dispatch table over the finite event kinds.
var handlers = map[EventKind]handlerFunc{
	EventRunStarted:   (*Dispatcher).handleRunStarted,
	EventSourceRead:   (*Dispatcher).handleSourceRead,
	EventSourceParsed: (*Dispatcher).handleSourceParsed,
	EventCaseStarted:  (*Dispatcher).handleCaseStarted,
	EventCaseFinished: (*Dispatcher).handleCaseFinished,
	EventStepStarted:  (*Dispatcher).handleStepStarted,
	EventStepFinished: (*Dispatcher).handleStepFinished,
	EventWrite:        (*Dispatcher).handleWrite,
	EventEmbed:        (*Dispatcher).handleEmbed,
	EventRunFinished:  (*Dispatcher).handleRunFinished,
}

// Dispatcher turns runner events into report sink calls.
type Dispatcher struct {
	sink          Sink
	registry      *Registry
	sources       *SourceIndex
	aggregator    *Aggregator
	writer        AttachmentWriter
	collaborators []Collaborator
	labels        []Label
	logger        *slog.Logger
	now           func() time.Time

	mu      sync.Mutex
	summary RunSummary
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithClock overrides the time source used for missing event times.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) {
		if now != nil {
			d.now = now
		}
	}
}

// WithClassifier sets the assertion classifier used for failed outcomes.
func WithClassifier(classifier ErrorClassifier) Option {
	return func(d *Dispatcher) {
		d.aggregator = NewAggregator(classifier)
	}
}

// WithRegistry shares an identity registry between dispatchers.
func WithRegistry(registry *Registry) Option {
	return func(d *Dispatcher) {
		if registry != nil {
			d.registry = registry
		}
	}
}

// WithSources shares a source index between dispatchers.
func WithSources(sources *SourceIndex) Option {
	return func(d *Dispatcher) {
		if sources != nil {
			d.sources = sources
		}
	}
}

// WithCollaborators appends extension points.
func WithCollaborators(collaborators ...Collaborator) Option {
	return func(d *Dispatcher) {
		for _, c := range collaborators {
			if c != nil {
				d.collaborators = append(d.collaborators, c)
			}
		}
	}
}

// WithLabels adds static labels to every case.
func WithLabels(labels ...Label) Option {
	return func(d *Dispatcher) {
		d.labels = append(d.labels, labels...)
	}
}

// New creates a Dispatcher writing to sink.
func New(sink Sink, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		sink:       sink,
		registry:   NewRegistry(),
		sources:    NewSourceIndex(),
		aggregator: NewAggregator(nil),
		logger:     slog.Default(),
		now:        time.Now,
		summary:    RunSummary{ByStatus: map[Status]int{}},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Sources returns the source index fed by SourceRead events.
func (d *Dispatcher) Sources() *SourceIndex {
	return d.sources
}

// Registry returns the case identity registry.
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// TotalCases returns the number of cases announced by SourceParsed events.
func (d *Dispatcher) TotalCases() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.summary.Total
}

// Summary returns a snapshot of the run counters.
func (d *Dispatcher) Summary() RunSummary {
	d.mu.Lock()
	defer d.mu.Unlock()
	snapshot := d.summary
	snapshot.ByStatus = make(map[Status]int, len(d.summary.ByStatus))
	for status, count := range d.summary.ByStatus {
		snapshot.ByStatus[status] = count
	}
	return snapshot
}

// Dispatch handles one event. Scenario-scoped events read the scenario from
// ctx; CaseStarted returns a context carrying the new scenario, which the
// runner passes to every later event of that scenario.
func (d *Dispatcher) Dispatch(ctx context.Context, ev Event) (context.Context, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ev = derefEvent(ev)
	if ev == nil {
		return ctx, fmt.Errorf("%w: nil", ErrUnknownEvent)
	}
	handler, ok := handlers[ev.Kind()]
	if !ok {
		return ctx, fmt.Errorf("%w: %s", ErrUnknownEvent, ev.Kind())
	}
	d.logger.Debug("dispatch event", slog.String("kind", ev.Kind().String()))
	return handler(d, ctx, ev)
}

func (d *Dispatcher) handleRunStarted(ctx context.Context, _ Event) (context.Context, error) {
	for _, c := range d.collaborators {
		if err := c.RunStarted(ctx); err != nil {
			return ctx, fmt.Errorf("run started: %w", err)
		}
	}
	d.logger.Info("test run started")
	return ctx, nil
}

func (d *Dispatcher) handleSourceRead(ctx context.Context, ev Event) (context.Context, error) {
	e := ev.(SourceRead)
	if _, err := d.sources.Add(e.URI, e.Source); err != nil {
		return ctx, fmt.Errorf("index source: %w", err)
	}
	return ctx, nil
}

func (d *Dispatcher) handleSourceParsed(ctx context.Context, ev Event) (context.Context, error) {
	e := ev.(SourceParsed)
	d.mu.Lock()
	d.summary.Total += len(e.Pickles)
	total := d.summary.Total
	d.mu.Unlock()
	d.logger.Debug("source parsed", slog.String("uri", e.URI), slog.Int("cases", len(e.Pickles)), slog.Int("total", total))
	return ctx, nil
}

func (d *Dispatcher) handleCaseStarted(ctx context.Context, ev Event) (context.Context, error) {
	e := ev.(CaseStarted)
	tc := e.Case
	feature := d.sources.Feature(tc.URI)
	scenario := d.sources.Scenario(tc.URI, tc.Line)

	tables := tc.Examples
	if tables == nil {
		tables = ExampleTablesFrom(scenario)
	}
	params, err := ExtractParameters(tables, tc.Line)
	if err != nil {
		return ctx, fmt.Errorf("case %q: %w", tc.Name, err)
	}

	historyID := HistoryID(tc.URI, tc.Line)
	sc := NewScenarioContext()
	sc.Begin(CaseInfo{
		Feature:     feature,
		Scenario:    scenario,
		URI:         tc.URI,
		Case:        tc,
		CaseID:      d.registry.IdentityFor(historyID),
		ContainerID: uuid.NewString(),
	})

	start := d.timestamp(e.Time)
	result := TestResult{
		UUID:        sc.CaseID(),
		HistoryID:   historyID,
		Name:        tc.Name,
		FullName:    sc.FeatureName() + ": " + tc.Name,
		Description: caseDescription(feature, scenario),
		Parameters:  params,
		Labels:      caseLabels(feature, sc.ScenarioName(), tc.Tags, d.labels),
		Start:       start,
	}
	container := Container{
		UUID:     sc.ContainerID(),
		Name:     containerName(scenario, tc),
		Children: []string{sc.CaseID()},
		Start:    start,
	}

	if err := d.sink.ScheduleCase(result); err != nil {
		return ctx, fmt.Errorf("schedule case: %w", err)
	}
	if err := d.sink.StartContainer(container); err != nil {
		return ctx, fmt.Errorf("start container: %w", err)
	}
	if err := d.sink.StartCase(sc.CaseID()); err != nil {
		return ctx, fmt.Errorf("start case: %w", err)
	}

	d.mu.Lock()
	d.summary.Started++
	d.mu.Unlock()

	ctx = WithScenario(ctx, sc)
	for _, c := range d.collaborators {
		if err := c.CaseStarted(ctx, sc); err != nil {
			d.logger.Warn("collaborator failed on case start", slog.String("case", tc.Name), slog.String("error", err.Error()))
		}
	}
	d.logger.Info("scenario started",
		slog.String("feature", sc.FeatureName()),
		slog.String("scenario", sc.ScenarioName()),
		slog.String("steps", strings.Join(tc.Steps, "\n")),
	)
	return ctx, nil
}

func (d *Dispatcher) handleCaseFinished(ctx context.Context, ev Event) (context.Context, error) {
	e := ev.(CaseFinished)
	sc, ok := ScenarioFrom(ctx)
	if !ok {
		return ctx, ErrNoScenario
	}
	caseID := sc.CaseID()

	lenient := e.Outcome == OutcomeUndefined || e.Outcome == OutcomeAmbiguous
	var details *StatusDetails
	if lenient {
		if !sc.Locked() {
			details = lenientWarning(e.Outcome, e.Err)
		}
	} else {
		details = DetailsFor(e.Err)
	}
	status, applied := d.aggregator.FoldCase(sc, e.Outcome, e.Err)
	stop := d.timestamp(e.Time)
	if err := d.sink.UpdateCase(caseID, func(r *TestResult) {
		if details != nil {
			r.StatusDetails = details
		}
		if applied {
			r.Status = status
		}
		r.Stop = stop
	}); err != nil {
		return ctx, fmt.Errorf("update case: %w", err)
	}
	if err := d.sink.StopCase(caseID); err != nil {
		return ctx, fmt.Errorf("stop case: %w", err)
	}
	if err := d.sink.StopContainer(sc.ContainerID()); err != nil {
		return ctx, fmt.Errorf("stop container: %w", err)
	}
	// Collaborators see the folded status; the case is stopped but not yet
	// written, so attachments still land on it.
	for _, c := range d.collaborators {
		if err := c.CaseFinished(ctx, sc, caseAttacher{sink: d.sink, caseID: caseID}); err != nil {
			d.logger.Warn("collaborator failed on case finish", slog.String("case", sc.ScenarioName()), slog.String("error", err.Error()))
		}
	}
	if err := d.sink.WriteCase(ctx, caseID); err != nil {
		return ctx, fmt.Errorf("write case: %w", err)
	}
	if err := d.sink.WriteContainer(ctx, sc.ContainerID()); err != nil {
		return ctx, fmt.Errorf("write container: %w", err)
	}

	d.mu.Lock()
	d.summary.Finished++
	if final := sc.Status(); final != "" {
		d.summary.ByStatus[final]++
	}
	d.mu.Unlock()

	d.logger.Info("scenario finished",
		slog.String("scenario", sc.ScenarioName()),
		slog.String("status", string(sc.Status())),
	)
	return ctx, nil
}

func (d *Dispatcher) handleStepStarted(ctx context.Context, ev Event) (context.Context, error) {
	e := ev.(StepStarted)
	sc, ok := ScenarioFrom(ctx)
	if !ok {
		return ctx, ErrNoScenario
	}
	switch {
	case e.Step != nil:
		return ctx, d.startStep(ctx, sc, e.Step, e.Time)
	case e.Hook != nil:
		return ctx, d.startFixture(sc, e.Hook, e.Time)
	default:
		return ctx, ErrEmptyStep
	}
}

func (d *Dispatcher) startStep(ctx context.Context, sc *ScenarioContext, step *PickleStep, at time.Time) error {
	keyword := d.sources.Keyword(sc.URI(), step.Line)
	stepID := StepID(sc.FeatureName(), sc.CaseID(), step.Text, step.Line)
	result := StepResult{
		Name:  keyword + " " + step.Text,
		Start: d.timestamp(at),
	}
	if err := d.sink.StartStep(sc.CaseID(), stepID, result); err != nil {
		return fmt.Errorf("start step: %w", err)
	}
	sc.setOpenStep(stepID)
	if len(step.DataTable) > 0 {
		if err := d.sink.AddAttachment(ctx, stepID, d.writer.WriteTabular(step.DataTable)); err != nil {
			return fmt.Errorf("attach data table: %w", err)
		}
	}
	return nil
}

func (d *Dispatcher) startFixture(sc *ScenarioContext, hook *HookStep, at time.Time) error {
	hookID := HookID(sc.FeatureName(), sc.CaseID(), hook.Kind, hook.CodeLocation)
	fixture := FixtureResult{
		Name:  hook.CodeLocation,
		Start: d.timestamp(at),
	}
	if err := d.sink.StartFixture(sc.ContainerID(), hookID, hook.Kind, fixture); err != nil {
		return fmt.Errorf("start fixture: %w", err)
	}
	sc.setOpenFixture(hookID)
	return nil
}

func (d *Dispatcher) handleStepFinished(ctx context.Context, ev Event) (context.Context, error) {
	e := ev.(StepFinished)
	sc, ok := ScenarioFrom(ctx)
	if !ok {
		return ctx, ErrNoScenario
	}
	switch {
	case e.Step != nil:
		return ctx, d.finishStep(ctx, sc, e)
	case e.Hook != nil:
		return ctx, d.finishFixture(sc, e)
	default:
		return ctx, ErrEmptyStep
	}
}

func (d *Dispatcher) finishStep(ctx context.Context, sc *ScenarioContext, e StepFinished) error {
	stepID := StepID(sc.FeatureName(), sc.CaseID(), e.Step.Text, e.Step.Line)
	if sc.openStep != stepID {
		// Runners skip the start event for steps that never ran.
		if err := d.startStep(ctx, sc, e.Step, e.Time); err != nil {
			return err
		}
	}
	verdict := d.aggregator.FoldStep(sc, e.Outcome, e.Err)
	if e.Outcome == OutcomeUndefined || e.Outcome == OutcomeAmbiguous {
		d.logger.Warn("step has no single matching definition",
			slog.String("case", sc.ScenarioName()),
			slog.String("step", e.Step.Text),
			slog.String("outcome", string(e.Outcome)))
	}
	if verdict.CaseStatus != "" || verdict.CaseDetails != nil {
		if err := d.sink.UpdateCase(sc.CaseID(), func(r *TestResult) {
			if verdict.CaseStatus != "" {
				r.Status = verdict.CaseStatus
			}
			if verdict.CaseDetails != nil {
				r.StatusDetails = verdict.CaseDetails
			}
		}); err != nil {
			return fmt.Errorf("update case: %w", err)
		}
	}
	stop := d.timestamp(e.Time)
	if err := d.sink.UpdateStep(stepID, func(r *StepResult) {
		r.Status = verdict.Status
		r.StatusDetails = verdict.Details
		r.Stop = stop
	}); err != nil {
		return fmt.Errorf("update step: %w", err)
	}
	if err := d.sink.StopStep(stepID); err != nil {
		return fmt.Errorf("stop step: %w", err)
	}
	sc.setOpenStep("")
	return nil
}

func (d *Dispatcher) finishFixture(sc *ScenarioContext, e StepFinished) error {
	hookID := HookID(sc.FeatureName(), sc.CaseID(), e.Hook.Kind, e.Hook.CodeLocation)
	if sc.openFixture != hookID {
		if err := d.startFixture(sc, e.Hook, e.Time); err != nil {
			return err
		}
	}
	verdict := d.aggregator.FoldHook(sc, e.Hook.Kind, e.Outcome, e.Err)
	if verdict.CaseStatus != "" {
		if err := d.sink.UpdateCase(sc.CaseID(), func(r *TestResult) {
			r.Status = verdict.CaseStatus
		}); err != nil {
			return fmt.Errorf("update case: %w", err)
		}
	}
	stop := d.timestamp(e.Time)
	if err := d.sink.UpdateFixture(hookID, func(r *FixtureResult) {
		r.Status = verdict.Status
		r.StatusDetails = verdict.Details
		r.Stop = stop
	}); err != nil {
		return fmt.Errorf("update fixture: %w", err)
	}
	if err := d.sink.StopFixture(hookID); err != nil {
		return fmt.Errorf("stop fixture: %w", err)
	}
	sc.setOpenFixture("")
	return nil
}

func (d *Dispatcher) handleWrite(ctx context.Context, ev Event) (context.Context, error) {
	e := ev.(Write)
	return ctx, d.attach(ctx, d.writer.WriteText(e.Text))
}

func (d *Dispatcher) handleEmbed(ctx context.Context, ev Event) (context.Context, error) {
	e := ev.(Embed)
	return ctx, d.attach(ctx, d.writer.WriteBinary(e.Name, e.MediaType, e.Data))
}

// attach adds content to the open step or fixture, or to the case.
func (d *Dispatcher) attach(ctx context.Context, content AttachmentContent) error {
	sc, ok := ScenarioFrom(ctx)
	if !ok {
		return ErrNoScenario
	}
	owner := sc.OpenStep()
	if owner == "" {
		owner = sc.CaseID()
	}
	if err := d.sink.AddAttachment(ctx, owner, content); err != nil {
		return fmt.Errorf("add attachment: %w", err)
	}
	return nil
}

func (d *Dispatcher) handleRunFinished(ctx context.Context, _ Event) (context.Context, error) {
	summary := d.Summary()
	var errs []error
	for _, c := range d.collaborators {
		if err := c.RunFinished(ctx, summary); err != nil {
			errs = append(errs, err)
		}
	}
	d.logger.Info("test run finished",
		slog.Int("total", summary.Total),
		slog.Int("finished", summary.Finished),
		slog.Int("passed", summary.ByStatus[StatusPassed]),
		slog.Int("failed", summary.ByStatus[StatusFailed]),
		slog.Int("broken", summary.ByStatus[StatusBroken]),
		slog.Int("skipped", summary.ByStatus[StatusSkipped]),
	)
	if err := errors.Join(errs...); err != nil {
		return ctx, fmt.Errorf("run finished: %w", err)
	}
	return ctx, nil
}

func (d *Dispatcher) timestamp(at time.Time) int64 {
	if at.IsZero() {
		at = d.now()
	}
	return at.UnixMilli()
}
