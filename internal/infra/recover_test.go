package infra

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestGoRecoverableRestartsAfterPanic(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	done := make(chan struct{})
	GoRecoverable(3, "flaky", func() {
		if calls.Add(1) < 3 {
			panic("transient failure")
		}
		close(done)
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("job was not restarted after panic, calls=%d", calls.Load())
	}
	if got := calls.Load(); got != 3 {
		t.Fatalf("expected 3 runs, got %d", got)
	}
}

func TestGoRecoverableNoPanicRunsOnce(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	GoRecoverable(0, "steady", func() { calls.Add(1) })
	if got := calls.Load(); got != 1 {
		t.Fatalf("expected a single run, got %d", got)
	}
}
