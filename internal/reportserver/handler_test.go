package reportserver

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"cukereport/internal/resultsdb"
	"cukereport/internal/resultsdb/testing"
	"cukereport/internal/testutil"
	"cukereport/pkg/listener"
)

var checkoutHistory = listener.HistoryID("checkout.feature", 5)

// seededHandler returns a handler over a store with two runs of one
// scenario and one unrelated case.
func seededHandler(t *testing.T) http.Handler {
	t.Helper()
	store := resultsdbtesting.Open(t)
	ctx := testutil.Context(t, 5*time.Second)
	results := []listener.TestResult{
		{UUID: "run-1", HistoryID: checkoutHistory, Name: "Pay with card", Status: listener.StatusPassed, Start: 1, Stop: 2,
			Labels: []listener.Label{{Name: "feature", Value: "Checkout"}},
			Steps:  []listener.StepResult{{Name: "Given a cart", Status: listener.StatusPassed}}},
		{UUID: "run-2", HistoryID: checkoutHistory, Name: "Pay with card", Status: listener.StatusBroken, Start: 10, Stop: 20,
			StatusDetails: &listener.StatusDetails{Message: "gateway down"}},
		{UUID: "other", HistoryID: "x", Name: "Add <item>", Status: listener.StatusPassed, Start: 5, Stop: 6},
	}
	if err := store.WriteAttachment(ctx, "a-attachment.txt", []byte("log line")); err != nil {
		t.Fatalf("write attachment: %v", err)
	}
	results[0].Attachments = []listener.Attachment{{Name: "log", Source: "a-attachment.txt", Type: "text/plain"}}
	for _, result := range results {
		if err := store.WriteResult(ctx, result); err != nil {
			t.Fatalf("write result: %v", err)
		}
	}
	handler, err := NewHandler(Config{Store: store, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}
	return handler
}

func get(t *testing.T, handler http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "http://example.com"+path, nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	return resp
}

func decode(t *testing.T, resp *httptest.ResponseRecorder, target any) {
	t.Helper()
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if err := json.Unmarshal(resp.Body.Bytes(), target); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

// TestNewHandlerRequiresStore verifies the store is mandatory.
func TestNewHandlerRequiresStore(t *testing.T) {
	if _, err := NewHandler(Config{}); err == nil {
		t.Fatalf("expected error without store")
	}
}

// TestIndexServesHTML ensures the root path renders the summary page.
func TestIndexServesHTML(t *testing.T) {
	resp := get(t, seededHandler(t), "/")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	if ct := resp.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Fatalf("unexpected content type %q", ct)
	}
	body := resp.Body.String()
	if !strings.Contains(body, "3 scenarios") || !strings.Contains(body, "Add &lt;item&gt;") {
		t.Fatalf("unexpected page:\n%s", body)
	}
}

// TestSummaryEndpoint verifies status counts are served as JSON.
func TestSummaryEndpoint(t *testing.T) {
	var out resultsdb.Summary
	decode(t, get(t, seededHandler(t), "/api/summary"), &out)
	if out.Total != 3 || out.ByStatus[listener.StatusPassed] != 2 || out.ByStatus[listener.StatusBroken] != 1 {
		t.Fatalf("unexpected summary %+v", out)
	}
}

// TestCasesEndpointFiltersByStatus verifies the status query parameter.
func TestCasesEndpointFiltersByStatus(t *testing.T) {
	handler := seededHandler(t)
	var all []resultsdb.CaseRow
	decode(t, get(t, handler, "/api/cases"), &all)
	if len(all) != 3 || all[0].UUID != "run-1" {
		t.Fatalf("unexpected cases %+v", all)
	}
	var broken []resultsdb.CaseRow
	decode(t, get(t, handler, "/api/cases?status=broken"), &broken)
	if len(broken) != 1 || broken[0].Message != "gateway down" {
		t.Fatalf("unexpected broken cases %+v", broken)
	}
	var skipped []resultsdb.CaseRow
	decode(t, get(t, handler, "/api/cases?status=skipped"), &skipped)
	if skipped == nil || len(skipped) != 0 {
		t.Fatalf("expected empty list, got %+v", skipped)
	}
}

// TestHistoryEndpoint verifies runs and stats for one history id.
func TestHistoryEndpoint(t *testing.T) {
	handler := seededHandler(t)
	var out historyResponse
	decode(t, get(t, handler, "/api/history/"+checkoutHistory), &out)
	if out.Stats.Runs != 2 || out.Stats.Failing != 1 || len(out.Runs) != 2 || out.Runs[1].UUID != "run-2" {
		t.Fatalf("unexpected history %+v", out)
	}
	if resp := get(t, handler, "/api/history/unknown"); resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown history, got %d", resp.Code)
	}
}

// TestStepsAndAttachmentEndpoints verifies case details are reachable.
func TestStepsAndAttachmentEndpoints(t *testing.T) {
	handler := seededHandler(t)
	var steps []resultsdb.StepRow
	decode(t, get(t, handler, "/api/cases/run-1/steps"), &steps)
	if len(steps) != 1 || steps[0].Name != "Given a cart" {
		t.Fatalf("unexpected steps %+v", steps)
	}

	resp := get(t, handler, "/api/attachments/a-attachment.txt")
	if resp.Code != http.StatusOK || resp.Body.String() != "log line" || resp.Header().Get("Content-Type") != "text/plain" {
		t.Fatalf("unexpected attachment response %d %q %q", resp.Code, resp.Body.String(), resp.Header().Get("Content-Type"))
	}
	if resp := get(t, handler, "/api/attachments/missing"); resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

// TestServeStopsOnCancel verifies Serve returns when its context ends.
func TestServeStopsOnCancel(t *testing.T) {
	store := resultsdbtesting.Open(t)
	ctx, cancel := context.WithCancel(testutil.Context(t, 5*time.Second))
	done := make(chan error, 1)
	go func() {
		done <- Serve(ctx, Config{Addr: "127.0.0.1:0", Store: store})
	}()
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("unexpected serve error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("serve did not stop")
	}
}
