// Package resultsdbtesting opens results databases for tests.
package resultsdbtesting

import (
	"testing"
	"time"

	"cukereport/internal/resultsdb"
	"cukereport/internal/testutil"
)

const (
	defaultTimeout = 5 * time.Second
)

// Open opens an in-memory store with the schema applied and closes it when
// the test ends.
func Open(t testing.TB) *resultsdb.Store {
	t.Helper()
	ctx := testutil.Context(t, defaultTimeout)
	store, err := resultsdb.Open(ctx, resultsdb.MemoryDSN)
	if err != nil {
		t.Fatalf("open results db: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}
