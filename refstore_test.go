package josh

import (
	"context"
	"testing"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/storage/memory"
)

func TestRefStoreCompareAndSet(t *testing.T) {
	s := memory.NewStorage()
	rs := NewRefStore(s)

	ref := plumbing.ReferenceName("refs/heads/main")
	h1 := plumbing.NewHash("1111111111111111111111111111111111111111")
	h2 := plumbing.NewHash("2222222222222222222222222222222222222222")

	if err := rs.CompareAndSet(ref, h1, plumbing.ZeroHash); err != nil {
		t.Fatalf("initial set: %v", err)
	}
	got, err := rs.Resolve(ref)
	if err != nil || got != h1 {
		t.Fatalf("Resolve after set: %v, %v", got, err)
	}

	if err := rs.CompareAndSet(ref, h2, h1); err != nil {
		t.Fatalf("cas with matching old: %v", err)
	}

	// Stale oldHash should be rejected as a race.
	err = rs.CompareAndSet(ref, h1, h1)
	if _, ok := err.(*RefRaceError); !ok {
		t.Fatalf("expected RefRaceError for stale compare-and-set, got %v", err)
	}
}

func TestUpdateRefWithRetryRetriesOnRace(t *testing.T) {
	s := memory.NewStorage()
	rs := NewRefStore(s)
	ref := plumbing.ReferenceName("refs/heads/main")

	h1 := plumbing.NewHash("1111111111111111111111111111111111111111")
	if err := rs.CompareAndSet(ref, h1, plumbing.ZeroHash); err != nil {
		t.Fatal(err)
	}

	attempts := 0
	result, err := UpdateRefWithRetry(context.Background(), rs, ref, 3, func(current plumbing.Hash) (plumbing.Hash, error) {
		attempts++
		if attempts == 1 {
			// simulate a concurrent writer moving the ref between our
			// Resolve and CompareAndSet by changing it out from under us.
			h2 := plumbing.NewHash("2222222222222222222222222222222222222222")
			_ = rs.CompareAndSet(ref, h2, current)
		}
		h3 := plumbing.NewHash("3333333333333333333333333333333333333333")
		return h3, nil
	})
	if err != nil {
		t.Fatalf("expected eventual success after retry, got %v", err)
	}
	if attempts < 2 {
		t.Errorf("expected at least 2 attempts, got %d", attempts)
	}
	final, _ := rs.Resolve(ref)
	if final != result {
		t.Errorf("final ref value %v != returned result %v", final, result)
	}
}
