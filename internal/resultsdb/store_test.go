package resultsdb_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"cukereport/internal/allure"
	"cukereport/internal/resultsdb"
	"cukereport/internal/resultsdb/testing"
	"cukereport/internal/testutil"
	"cukereport/pkg/listener"
)

const testTimeout = 5 * time.Second

func sampleResult(uuid, historyID string, status listener.Status, start int64) listener.TestResult {
	return listener.TestResult{
		UUID:      uuid,
		HistoryID: historyID,
		Name:      "Pay with card",
		FullName:  "Checkout: Pay with card",
		Status:    status,
		Stage:     listener.StageFinished,
		Start:     start,
		Stop:      start + 100,
		Labels:    []listener.Label{{Name: "feature", Value: "Checkout"}, {Name: "tag", Value: "@smoke"}},
		Steps: []listener.StepResult{
			{Name: "Given a cart", Status: listener.StatusPassed, Steps: []listener.StepResult{
				{Name: "nested", Status: listener.StatusPassed},
			}},
			{Name: "When I pay", Status: status},
		},
	}
}

// queryInt returns a single integer value from the database.
func queryInt(t *testing.T, ctx context.Context, db *sql.DB, query string, args ...interface{}) int {
	t.Helper()
	var out int
	if err := db.QueryRowContext(ctx, query, args...).Scan(&out); err != nil {
		t.Fatalf("query int failed: %v", err)
	}
	return out
}

// TestSchemaObjectsExist verifies tables and views are created.
func TestSchemaObjectsExist(t *testing.T) {
	store := resultsdbtesting.Open(t)
	ctx := testutil.Context(t, testTimeout)
	for _, table := range []string{"cases", "steps", "containers", "container_children", "fixtures", "attachments"} {
		count := queryInt(t, ctx, store.DB(), "SELECT COUNT(*) FROM information_schema.tables WHERE table_name = ?", table)
		if count != 1 {
			t.Fatalf("expected table %s to exist", table)
		}
	}
	viewCount := queryInt(t, ctx, store.DB(), "SELECT COUNT(*) FROM information_schema.tables WHERE table_name = 'v_history' AND table_type = 'VIEW'")
	if viewCount != 1 {
		t.Fatalf("expected view v_history to exist")
	}
}

// TestWriteResultIsIdempotent verifies rewriting a case replaces its rows.
func TestWriteResultIsIdempotent(t *testing.T) {
	store := resultsdbtesting.Open(t)
	ctx := testutil.Context(t, testTimeout)
	result := sampleResult("case-1", "h1", listener.StatusPassed, 1000)

	for i := 0; i < 2; i++ {
		if err := store.WriteResult(ctx, result); err != nil {
			t.Fatalf("write result: %v", err)
		}
	}
	if got := queryInt(t, ctx, store.DB(), "SELECT COUNT(*) FROM cases"); got != 1 {
		t.Fatalf("expected 1 case row, got %d", got)
	}
	steps, err := store.Steps(ctx, "case-1")
	if err != nil {
		t.Fatalf("steps: %v", err)
	}
	if len(steps) != 3 {
		t.Fatalf("expected 3 step rows, got %+v", steps)
	}
	if steps[0].Path != "0" || steps[1].Path != "0.0" || steps[1].Depth != 1 || steps[2].Name != "When I pay" {
		t.Fatalf("unexpected step order %+v", steps)
	}

	cases, err := store.Cases(ctx, "")
	if err != nil {
		t.Fatalf("cases: %v", err)
	}
	if len(cases) != 1 || len(cases[0].Labels) != 2 || cases[0].Labels[1].Value != "@smoke" {
		t.Fatalf("unexpected cases %+v", cases)
	}
}

// TestSummaryCountsStatuses verifies the status aggregation.
func TestSummaryCountsStatuses(t *testing.T) {
	store := resultsdbtesting.Open(t)
	ctx := testutil.Context(t, testTimeout)
	for i, status := range []listener.Status{listener.StatusPassed, listener.StatusPassed, listener.StatusBroken, ""} {
		result := sampleResult(string(rune('a'+i)), "h", status, int64(i))
		if err := store.WriteResult(ctx, result); err != nil {
			t.Fatalf("write result: %v", err)
		}
	}
	summary, err := store.Summary(ctx)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.Total != 4 || summary.ByStatus[listener.StatusPassed] != 2 || summary.ByStatus[listener.StatusBroken] != 1 || summary.ByStatus["unknown"] != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	broken, err := store.Cases(ctx, listener.StatusBroken)
	if err != nil {
		t.Fatalf("cases: %v", err)
	}
	if len(broken) != 1 || broken[0].UUID != "c" {
		t.Fatalf("unexpected broken cases %+v", broken)
	}
}

// TestHistoryAcrossRuns verifies runs of one scenario share a history.
func TestHistoryAcrossRuns(t *testing.T) {
	store := resultsdbtesting.Open(t)
	ctx := testutil.Context(t, testTimeout)
	historyID := listener.HistoryID("checkout.feature", 5)
	runs := []listener.TestResult{
		sampleResult("run-2", historyID, listener.StatusFailed, 2000),
		sampleResult("run-1", historyID, listener.StatusPassed, 1000),
		sampleResult("other", "elsewhere", listener.StatusPassed, 500),
	}
	for _, run := range runs {
		if err := store.WriteResult(ctx, run); err != nil {
			t.Fatalf("write result: %v", err)
		}
	}
	history, err := store.History(ctx, historyID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 2 || history[0].UUID != "run-1" || history[1].Status != listener.StatusFailed {
		t.Fatalf("unexpected history %+v", history)
	}
	stats, err := store.HistoryStats(ctx, historyID)
	if err != nil {
		t.Fatalf("history stats: %v", err)
	}
	if stats.Runs != 2 || stats.Passed != 1 || stats.Failing != 1 || stats.LastStopMs != 2100 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if _, err := store.HistoryStats(ctx, "missing"); !errors.Is(err, resultsdb.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

// TestContainerRows verifies children and fixtures are stored per container.
func TestContainerRows(t *testing.T) {
	store := resultsdbtesting.Open(t)
	ctx := testutil.Context(t, testTimeout)
	container := listener.Container{
		UUID:     "container-1",
		Name:     "Scenario: Pay with card",
		Children: []string{"case-1"},
		Befores:  []listener.FixtureResult{{Name: "hooks.go:10 openSession", Status: listener.StatusPassed}},
		Afters:   []listener.FixtureResult{{Name: "hooks.go:20 closeSession", Status: listener.StatusBroken}},
	}
	for i := 0; i < 2; i++ {
		if err := store.WriteContainer(ctx, container); err != nil {
			t.Fatalf("write container: %v", err)
		}
	}
	if got := queryInt(t, ctx, store.DB(), "SELECT COUNT(*) FROM container_children WHERE container_uuid = ?", "container-1"); got != 1 {
		t.Fatalf("expected 1 child, got %d", got)
	}
	if got := queryInt(t, ctx, store.DB(), "SELECT COUNT(*) FROM fixtures WHERE kind = 'AFTER' AND status = 'broken'"); got != 1 {
		t.Fatalf("expected broken after fixture, got %d", got)
	}
}

// TestAttachmentClaimedByCase verifies attachment metadata comes from the owning case.
func TestAttachmentClaimedByCase(t *testing.T) {
	store := resultsdbtesting.Open(t)
	ctx := testutil.Context(t, testTimeout)
	if err := store.WriteAttachment(ctx, "a1-attachment.txt", []byte("hello")); err != nil {
		t.Fatalf("write attachment: %v", err)
	}
	result := sampleResult("case-1", "h1", listener.StatusPassed, 1)
	result.Steps[1].Attachments = []listener.Attachment{{Name: "log", Source: "a1-attachment.txt", Type: "text/plain"}}
	if err := store.WriteResult(ctx, result); err != nil {
		t.Fatalf("write result: %v", err)
	}
	data, mediaType, err := store.Attachment(ctx, "a1-attachment.txt")
	if err != nil {
		t.Fatalf("attachment: %v", err)
	}
	if string(data) != "hello" || mediaType != "text/plain" {
		t.Fatalf("unexpected attachment %q %q", data, mediaType)
	}
	if _, _, err := store.Attachment(ctx, "missing"); !errors.Is(err, resultsdb.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

// TestIngestResultsDir verifies a results directory loads into the store.
func TestIngestResultsDir(t *testing.T) {
	dir := t.TempDir()
	writer, err := allure.NewFileSystemWriter(dir, false)
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}
	ctx := testutil.Context(t, testTimeout)
	result := sampleResult("case-1", "h1", listener.StatusPassed, 1)
	result.Attachments = []listener.Attachment{{Name: "out", Source: "x-attachment.txt", Type: "text/plain"}}
	if err := writer.WriteAttachment(ctx, "x-attachment.txt", []byte("out")); err != nil {
		t.Fatalf("write attachment: %v", err)
	}
	if err := writer.WriteResult(ctx, result); err != nil {
		t.Fatalf("write result: %v", err)
	}
	if err := writer.WriteContainer(ctx, listener.Container{UUID: "c1", Children: []string{"case-1"}}); err != nil {
		t.Fatalf("write container: %v", err)
	}

	store := resultsdbtesting.Open(t)
	stats, err := store.Ingest(ctx, dir)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if stats.Cases != 1 || stats.Containers != 1 || stats.Attachments != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if _, mediaType, err := store.Attachment(ctx, "x-attachment.txt"); err != nil || mediaType != "text/plain" {
		t.Fatalf("expected claimed attachment, got %q %v", mediaType, err)
	}
}

// TestStorePersistsAcrossReopen verifies file-backed stores survive a close.
func TestStorePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "results.duckdb")
	ctx := testutil.Context(t, testTimeout)
	store, err := resultsdb.Open(ctx, path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := store.WriteResult(ctx, sampleResult("case-1", "h1", listener.StatusPassed, 1)); err != nil {
		t.Fatalf("write result: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := resultsdb.Open(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	summary, err := reopened.Summary(ctx)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.Total != 1 {
		t.Fatalf("expected persisted case, got %+v", summary)
	}
}
