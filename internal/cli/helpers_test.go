package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"cukereport/internal/allure"
	"cukereport/pkg/listener"
)

// writeConfig writes body to .cukereport/config.yml under dir.
func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, ".cukereport", "config.yml")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("create config dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

// writeResults fills dir with two finished cases.
func writeResults(t *testing.T, dir string) {
	t.Helper()
	writer, err := allure.NewFileSystemWriter(dir, true)
	if err != nil {
		t.Fatalf("create writer: %v", err)
	}
	ctx := context.Background()
	feature := []listener.Label{{Name: "feature", Value: "Checkout"}}
	results := []listener.TestResult{
		{UUID: "case-1", HistoryID: "h1", Name: "Pay with card", Status: listener.StatusPassed, Stage: listener.StageFinished, Start: 1000, Stop: 1200, Labels: feature},
		{UUID: "case-2", HistoryID: "h2", Name: "Pay twice", Status: listener.StatusFailed, Stage: listener.StageFinished, Start: 1300, Stop: 1500, Labels: feature,
			StatusDetails: &listener.StatusDetails{Message: "charged twice"}},
	}
	for _, result := range results {
		if err := writer.WriteResult(ctx, result); err != nil {
			t.Fatalf("write result: %v", err)
		}
	}
}
