package registry

import (
	"testing"
	"time"

	"github.com/gosuda/rpcharness/harness"
)

func TestRegisterLookupUnregister(t *testing.T) {
	r := New(0)
	endpoint := harness.NewServerEndpoint()

	entry := r.Register("counter", endpoint)
	if entry.ID == "" {
		t.Fatalf("expected a generated id")
	}

	got, ok := r.Lookup(entry.ID)
	if !ok || got != entry {
		t.Fatalf("lookup did not return the registered entry")
	}

	if r.Count() != 1 {
		t.Fatalf("expected Count() == 1, got %d", r.Count())
	}

	r.Unregister(entry.ID)
	if _, ok := r.Lookup(entry.ID); ok {
		t.Fatalf("expected lookup to fail after Unregister")
	}
}

func TestDistinctActorsGetDistinctIDs(t *testing.T) {
	r := New(0)
	a := r.Register("a", harness.NewServerEndpoint())
	b := r.Register("b", harness.NewServerEndpoint())
	if a.ID == b.ID {
		t.Fatalf("expected distinct ids, got %q twice", a.ID)
	}
	if r.Count() != 2 {
		t.Fatalf("expected Count() == 2, got %d", r.Count())
	}
}

func TestSweepReapsClosedActors(t *testing.T) {
	r := New(20 * time.Millisecond)
	live := harness.NewServerEndpoint()
	dead := harness.NewServerEndpoint()
	dead.Close()

	liveEntry := r.Register("live", live)
	deadEntry := r.Register("dead", dead)

	r.Start()
	defer r.Stop()

	deadline := time.Now().Add(time.Second)
	for {
		if _, ok := r.Lookup(deadEntry.ID); !ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("sweeper never reaped the dead actor")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if _, ok := r.Lookup(liveEntry.ID); !ok {
		t.Fatalf("sweeper should not have reaped the live actor")
	}
}

func TestListReturnsSnapshot(t *testing.T) {
	r := New(0)
	r.Register("a", harness.NewServerEndpoint())
	r.Register("b", harness.NewServerEndpoint())

	entries := r.List()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
}
