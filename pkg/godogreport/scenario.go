package godogreport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"reflect"
	"runtime"
	"strings"

	"github.com/cucumber/godog"
	messages "github.com/cucumber/messages/go/v21"

	"cukereport/pkg/listener"
)

// HookFunc is a scenario hook reported as a fixture.
type HookFunc func(ctx context.Context, scenario *godog.Scenario) (context.Context, error)

type hook struct {
	kind     listener.HookKind
	location string
	fn       HookFunc
}

// ScenarioOption adds reported hooks to a scenario.
type ScenarioOption func(*scenarioHooks)

type scenarioHooks struct {
	before []hook
	after  []hook
}

// WithBefore runs fn before every scenario and reports it as a before fixture.
func WithBefore(fn HookFunc) ScenarioOption {
	return func(h *scenarioHooks) {
		h.before = append(h.before, hook{kind: listener.HookBefore, location: codeLocation(fn), fn: fn})
	}
}

// WithAfter runs fn after every scenario and reports it as an after fixture.
func WithAfter(fn HookFunc) ScenarioOption {
	return func(h *scenarioHooks) {
		h.after = append(h.after, hook{kind: listener.HookAfter, location: codeLocation(fn), fn: fn})
	}
}

// caseState is the per-scenario binding between godog and source lines.
type caseState struct {
	reporter  *Reporter
	testCase  listener.TestCase
	stepLines map[string]int
}

type caseKey struct{}

func caseFrom(ctx context.Context) (*caseState, bool) {
	state, ok := ctx.Value(caseKey{}).(*caseState)
	return state, ok && state != nil
}

// InitializeScenario registers scenario and step hooks on sc.
func (r *Reporter) InitializeScenario(sc *godog.ScenarioContext, opts ...ScenarioOption) {
	hooks := &scenarioHooks{}
	for _, opt := range opts {
		opt(hooks)
	}

	sc.Before(func(ctx context.Context, scenario *godog.Scenario) (context.Context, error) {
		ctx, err := r.startCase(ctx, scenario)
		if err != nil {
			r.record(err)
			return ctx, err
		}
		for _, h := range hooks.before {
			if ctx, err = r.runHook(ctx, h, scenario); err != nil {
				return ctx, err
			}
		}
		return ctx, nil
	})

	sc.StepContext().Before(func(ctx context.Context, step *godog.Step) (context.Context, error) {
		state, ok := caseFrom(ctx)
		if !ok {
			return ctx, nil
		}
		err := r.dispatch(ctx, listener.StepStarted{Step: state.pickleStep(step)})
		r.record(err)
		return ctx, err
	})

	sc.StepContext().After(func(ctx context.Context, step *godog.Step, status godog.StepResultStatus, stepErr error) (context.Context, error) {
		state, ok := caseFrom(ctx)
		if !ok {
			return ctx, nil
		}
		err := r.dispatch(ctx, listener.StepFinished{
			Step:    state.pickleStep(step),
			Outcome: listener.ParseOutcome(status.String()),
			Err:     stepErr,
		})
		r.record(err)
		return ctx, err
	})

	sc.After(func(ctx context.Context, scenario *godog.Scenario, scenarioErr error) (context.Context, error) {
		state, ok := caseFrom(ctx)
		if !ok {
			return ctx, nil
		}
		var hookErrs []error
		for _, h := range hooks.after {
			next, err := r.runHook(ctx, h, scenario)
			ctx = next
			if err != nil {
				hookErrs = append(hookErrs, err)
			}
		}
		err := r.dispatch(ctx, listener.CaseFinished{
			Case:    state.testCase,
			Outcome: caseOutcome(scenarioErr),
			Err:     scenarioErr,
		})
		r.record(err)
		return ctx, errors.Join(append(hookErrs, err)...)
	})
}

// startCase binds the godog scenario to its source and emits CaseStarted.
func (r *Reporter) startCase(ctx context.Context, scenario *godog.Scenario) (context.Context, error) {
	state := &caseState{
		reporter:  r,
		stepLines: make(map[string]int, len(scenario.Steps)),
		testCase: listener.TestCase{
			ID:   scenario.Id,
			URI:  scenario.Uri,
			Name: scenario.Name,
			Tags: pickleTags(scenario.Tags),
		},
	}
	for _, step := range scenario.Steps {
		state.testCase.Steps = append(state.testCase.Steps, step.Text)
	}

	doc, err := r.document(ctx, scenario.Uri)
	if err != nil {
		r.logger.Warn("feature source unavailable", slog.String("uri", scenario.Uri), slog.String("error", err.Error()))
	} else if idx := r.claim(doc, scenario); idx >= 0 {
		local := doc.Pickles[idx]
		state.testCase.Line = doc.CaseLine(local)
		for i, step := range scenario.Steps {
			state.stepLines[step.Id] = doc.StepLine(local.Steps[i])
		}
	} else {
		r.logger.Warn("scenario not found in feature source", slog.String("uri", scenario.Uri), slog.String("scenario", scenario.Name))
	}

	ctx = context.WithValue(ctx, caseKey{}, state)
	next, err := r.dispatcher.Dispatch(ctx, listener.CaseStarted{Case: state.testCase})
	if err != nil {
		return ctx, fmt.Errorf("start scenario %q: %w", scenario.Name, err)
	}
	return next, nil
}

// runHook reports fn as a fixture around its execution.
func (r *Reporter) runHook(ctx context.Context, h hook, scenario *godog.Scenario) (context.Context, error) {
	step := &listener.HookStep{Kind: h.kind, CodeLocation: h.location}
	if err := r.dispatch(ctx, listener.StepStarted{Hook: step}); err != nil {
		r.record(err)
	}
	next, hookErr := h.fn(ctx, scenario)
	if next != nil {
		ctx = next
	}
	outcome := listener.OutcomePassed
	if hookErr != nil {
		outcome = listener.OutcomeFailed
	}
	if err := r.dispatch(ctx, listener.StepFinished{Hook: step, Outcome: outcome, Err: hookErr}); err != nil {
		r.record(err)
	}
	return ctx, hookErr
}

func (s *caseState) pickleStep(step *godog.Step) *listener.PickleStep {
	return &listener.PickleStep{
		Text:      step.Text,
		Line:      s.stepLines[step.Id],
		DataTable: dataTableRows(step.Argument),
	}
}

// caseOutcome maps the scenario error godog hands to after hooks.
func caseOutcome(err error) listener.Outcome {
	switch {
	case err == nil:
		return listener.OutcomePassed
	case errors.Is(err, godog.ErrUndefined):
		return listener.OutcomeUndefined
	case errors.Is(err, godog.ErrPending):
		return listener.OutcomePending
	case errors.Is(err, godog.ErrSkip):
		return listener.OutcomeSkipped
	default:
		return listener.OutcomeFailed
	}
}

func pickleTags(tags []*messages.PickleTag) []string {
	if len(tags) == 0 {
		return nil
	}
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		if tag != nil {
			out = append(out, tag.Name)
		}
	}
	return out
}

func dataTableRows(arg *messages.PickleStepArgument) [][]string {
	if arg == nil || arg.DataTable == nil {
		return nil
	}
	rows := make([][]string, 0, len(arg.DataTable.Rows))
	for _, row := range arg.DataTable.Rows {
		if row == nil {
			continue
		}
		cells := make([]string, 0, len(row.Cells))
		for _, cell := range row.Cells {
			if cell == nil {
				cells = append(cells, "")
				continue
			}
			cells = append(cells, cell.Value)
		}
		rows = append(rows, cells)
	}
	return rows
}

// codeLocation renders "file.go:line pkg.Func" for a function value.
func codeLocation(fn any) string {
	value := reflect.ValueOf(fn)
	if value.Kind() != reflect.Func || value.IsNil() {
		return "unknown"
	}
	f := runtime.FuncForPC(value.Pointer())
	if f == nil {
		return "unknown"
	}
	file, line := f.FileLine(f.Entry())
	name := f.Name()
	if idx := strings.LastIndex(name, "/"); idx >= 0 {
		name = name[idx+1:]
	}
	return fmt.Sprintf("%s:%d %s", filepath.Base(file), line, name)
}

// Write attaches text to the running step of the scenario in ctx.
func Write(ctx context.Context, text string) error {
	state, ok := caseFrom(ctx)
	if !ok {
		return listener.ErrNoScenario
	}
	return state.reporter.dispatch(ctx, listener.Write{Text: text})
}

// Embed attaches binary content to the running step of the scenario in ctx.
func Embed(ctx context.Context, name, mediaType string, data []byte) error {
	state, ok := caseFrom(ctx)
	if !ok {
		return listener.ErrNoScenario
	}
	return state.reporter.dispatch(ctx, listener.Embed{Name: name, MediaType: mediaType, Data: data})
}
