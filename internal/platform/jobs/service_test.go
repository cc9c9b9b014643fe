package jobs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
)

func TestQueuedJobsRunBeforeStopReturns(t *testing.T) {
	s := New(8)
	s.Start(context.Background(), 2)

	var ran atomic.Int32
	for i := 0; i < 5; i++ {
		if !s.Enqueue("count", func(context.Context) error {
			ran.Add(1)
			return nil
		}) {
			t.Fatal("enqueue rejected")
		}
	}
	s.Stop()

	if ran.Load() != 5 {
		t.Fatalf("expected 5 runs, got %d", ran.Load())
	}
	if s.Enqueue("late", func(context.Context) error { return nil }) {
		t.Fatal("expected enqueue after stop to be rejected")
	}
}

func TestEnqueueDropsWhenFull(t *testing.T) {
	s := New(1)
	noop := func(context.Context) error { return nil }
	if !s.Enqueue("a", noop) {
		t.Fatal("first enqueue rejected")
	}
	if s.Enqueue("b", noop) {
		t.Fatal("expected full queue to drop the job")
	}
}

func TestOnRunObservesEachOutcome(t *testing.T) {
	s := New(4)
	var mu sync.Mutex
	seen := map[string]int{}
	s.OnRun = func(jobType string, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			jobType += ":failed"
		}
		seen[jobType]++
	}
	s.Start(context.Background(), 1)

	boom := errors.New("boom")
	s.Enqueue("mail", func(context.Context) error { return boom })
	s.Enqueue("mail", func(context.Context) error { return nil })
	s.Stop()

	if seen["mail"] != 1 || seen["mail:failed"] != 1 {
		t.Fatalf("unexpected outcomes: %v", seen)
	}
}
