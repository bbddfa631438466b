package listener

import (
	"sync"
	"testing"
)

func TestRegistryIdentityIsStable(t *testing.T) {
	registry := NewRegistry()
	first := registry.IdentityFor("h1")
	if first == "" {
		t.Fatalf("expected identifier")
	}
	if again := registry.IdentityFor("h1"); again != first {
		t.Fatalf("expected %q, got %q", first, again)
	}
	if other := registry.IdentityFor("h2"); other == first {
		t.Fatalf("expected distinct identifier for distinct key")
	}
	if registry.Len() != 2 {
		t.Fatalf("expected 2 keys, got %d", registry.Len())
	}
}

func TestRegistryConcurrentFirstUse(t *testing.T) {
	registry := NewRegistry()
	const workers = 32
	ids := make([]string, workers)
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			ids[i] = registry.IdentityFor("shared")
		}(i)
	}
	close(start)
	wg.Wait()
	for i, id := range ids {
		if id != ids[0] {
			t.Fatalf("worker %d got %q, want %q", i, id, ids[0])
		}
	}
}

func TestHistoryIDUsesBasenameAndLine(t *testing.T) {
	// md5("login.feature:12")
	const want = "b8f113e91389edee14f7ea1f4107b49d"
	a := HistoryID("features/auth/login.feature", 12)
	b := HistoryID("/tmp/other/login.feature", 12)
	c := HistoryID("login.feature", 12)
	if a != b || b != c {
		t.Fatalf("expected equal history ids, got %q %q %q", a, b, c)
	}
	if a != want {
		t.Fatalf("expected %q, got %q", want, a)
	}
	if HistoryID("login.feature", 13) == a {
		t.Fatalf("expected line to change history id")
	}
}

func TestStepAndHookIDs(t *testing.T) {
	if got := StepID("Login", "case-1", "I sign in", 7); got != "Logincase-1I sign in7" {
		t.Fatalf("unexpected step id %q", got)
	}
	if got := HookID("Login", "case-1", HookBefore, "steps.go:10"); got != "Logincase-1BEFOREsteps.go:10" {
		t.Fatalf("unexpected hook id %q", got)
	}
}
