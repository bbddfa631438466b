package godogreport

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cucumber/godog"

	"cukereport/internal/allure"
	"cukereport/pkg/listener"
)

const calculatorFeature = `Feature: Calculator

  Scenario: adding
    Given I have 2 and 3
    When I add them
    Then the result is 5

  Scenario: wrong sum
    Given I have 2 and 2
    When I add them
    Then the result is 5

  Scenario: missing glue
    Given I have 1 and 1
    When I multiply them

  Scenario Outline: table
    Given I have <a> and <b>
    When I add them
    Then the result is <sum>

    Examples:
      | a | b | sum |
      | 1 | 1 | 2   |
      | 2 | 5 | 7   |
`

// calcState holds per-scenario calculator values.
type calcState struct {
	a, b, result int
}

func (s *calcState) iHave(a, b int) error {
	s.a, s.b = a, b
	return nil
}

func (s *calcState) iAddThem(ctx context.Context) error {
	s.result = s.a + s.b
	return Write(ctx, fmt.Sprintf("sum %d", s.result))
}

func (s *calcState) theResultIs(expected int) error {
	if s.result != expected {
		return fmt.Errorf("expected %d, got %d: %w", expected, s.result, listener.ErrAssertion)
	}
	return nil
}

func openSession(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
	return ctx, nil
}

func runCalculatorSuite(t *testing.T, concurrency int) (*Reporter, *allure.MemoryWriter) {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "calculator.feature"), []byte(calculatorFeature), 0o644); err != nil {
		t.Fatalf("write feature: %v", err)
	}

	writer := allure.NewMemoryWriter()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	dispatcher := listener.New(allure.NewLifecycle(writer), listener.WithLogger(logger))
	reporter := New(dispatcher, WithLogger(logger), WithFeaturePaths("", dir))

	suite := godog.TestSuite{
		Name:                 "calculator",
		TestSuiteInitializer: reporter.InitializeTestSuite,
		ScenarioInitializer: func(sc *godog.ScenarioContext) {
			state := &calcState{}
			reporter.InitializeScenario(sc, WithBefore(openSession))
			sc.Step(`^I have (\d+) and (\d+)$`, state.iHave)
			sc.Step(`^I add them$`, state.iAddThem)
			sc.Step(`^the result is (\d+)$`, state.theResultIs)
		},
		Options: &godog.Options{
			Format:      "progress",
			Output:      io.Discard,
			Paths:       []string{dir},
			Concurrency: concurrency,
			Randomize:   0,
		},
	}
	suite.Run()
	if err := reporter.Err(); err != nil {
		t.Fatalf("reporter errors: %v", err)
	}
	return reporter, writer
}

// TestReporterGodogSuite verifies a godog run produces one result per scenario.
func TestReporterGodogSuite(t *testing.T) {
	reporter, writer := runCalculatorSuite(t, 4)

	results := writer.Results()
	if len(results) != 5 {
		t.Fatalf("expected 5 results, got %d", len(results))
	}
	if total := reporter.Dispatcher().Summary().Total; total != 5 {
		t.Fatalf("expected 5 announced cases, got %d", total)
	}

	adding, ok := writer.ResultNamed("adding")
	if !ok || adding.Status != listener.StatusPassed {
		t.Fatalf("expected adding to pass, got %+v", adding)
	}
	if adding.HistoryID != listener.HistoryID("calculator.feature", 3) {
		t.Fatalf("unexpected history id %q", adding.HistoryID)
	}
	if len(adding.Steps) != 3 || adding.Steps[0].Name != "Given I have 2 and 3" {
		t.Fatalf("unexpected steps %+v", adding.Steps)
	}
	if len(adding.Steps[1].Attachments) != 1 {
		t.Fatalf("expected text output on add step, got %+v", adding.Steps[1])
	}
	data, _ := writer.Attachment(adding.Steps[1].Attachments[0].Source)
	if string(data) != "sum 5" {
		t.Fatalf("unexpected output %q", data)
	}

	wrong, _ := writer.ResultNamed("wrong sum")
	if wrong.Status != listener.StatusFailed {
		t.Fatalf("expected wrong sum to fail, got %q", wrong.Status)
	}

	missing, _ := writer.ResultNamed("missing glue")
	if missing.Status != listener.StatusPassed {
		t.Fatalf("expected undefined step to keep the case passing, got %q", missing.Status)
	}

	rows := map[string]bool{}
	for _, result := range results {
		if result.Name != "table" {
			continue
		}
		if len(result.Parameters) != 3 || result.Parameters[0].Name != "a" {
			t.Fatalf("expected outline parameters, got %+v", result.Parameters)
		}
		rows[result.Parameters[0].Value+"+"+result.Parameters[1].Value] = true
	}
	if !rows["1+1"] || !rows["2+5"] {
		t.Fatalf("expected both example rows, got %v", rows)
	}

	for _, container := range writer.Containers() {
		if len(container.Befores) != 1 || !strings.Contains(container.Befores[0].Name, "openSession") {
			t.Fatalf("expected reported before hook, got %+v", container.Befores)
		}
	}
}

// TestReporterHistoryIsStableAcrossConcurrency verifies history ids do not depend on scheduling.
func TestReporterHistoryIsStableAcrossConcurrency(t *testing.T) {
	_, serial := runCalculatorSuite(t, 1)
	_, parallel := runCalculatorSuite(t, 8)

	collect := func(w *allure.MemoryWriter) map[string]listener.Status {
		out := map[string]listener.Status{}
		for _, result := range w.Results() {
			out[result.HistoryID] = result.Status
		}
		return out
	}
	a, b := collect(serial), collect(parallel)
	if len(a) != 5 || len(b) != 5 {
		t.Fatalf("expected 5 distinct history ids, got %d and %d", len(a), len(b))
	}
	for id, status := range a {
		if b[id] != status {
			t.Fatalf("history %s: %q vs %q", id, status, b[id])
		}
	}
}

// TestCaseOutcome verifies godog scenario errors map to outcomes.
func TestCaseOutcome(t *testing.T) {
	cases := []struct {
		err  error
		want listener.Outcome
	}{
		{nil, listener.OutcomePassed},
		{godog.ErrUndefined, listener.OutcomeUndefined},
		{fmt.Errorf("step: %w", godog.ErrPending), listener.OutcomePending},
		{godog.ErrSkip, listener.OutcomeSkipped},
		{fmt.Errorf("boom"), listener.OutcomeFailed},
	}
	for _, tc := range cases {
		if got := caseOutcome(tc.err); got != tc.want {
			t.Fatalf("caseOutcome(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

// TestWriteWithoutScenario verifies helpers reject contexts without a scenario.
func TestWriteWithoutScenario(t *testing.T) {
	if err := Write(context.Background(), "x"); err != listener.ErrNoScenario {
		t.Fatalf("expected ErrNoScenario, got %v", err)
	}
	if err := Embed(context.Background(), "x", "text/plain", nil); err != listener.ErrNoScenario {
		t.Fatalf("expected ErrNoScenario, got %v", err)
	}
}

// TestCodeLocation verifies hook locations name the file and function.
func TestCodeLocation(t *testing.T) {
	location := codeLocation(HookFunc(openSession))
	if !strings.HasPrefix(location, "reporter_test.go:") || !strings.HasSuffix(location, "openSession") {
		t.Fatalf("unexpected location %q", location)
	}
	if got := codeLocation(nil); got != "unknown" {
		t.Fatalf("expected unknown for nil, got %q", got)
	}
}
