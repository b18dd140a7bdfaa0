package advice

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"piggy/internal/core"
)

// scriptedAdviser hands out answers one request at a time, signalling
// starts and blocking until released.
type scriptedAdviser struct {
	started  chan string
	release  chan struct{}
	requests atomic.Int64
}

func (a *scriptedAdviser) Advise(ctx context.Context, summary core.FinancialSummary, latest *core.Transaction, goals []core.Goal) string {
	n := a.requests.Add(1)
	text := "advice-" + string(rune('0'+n))
	a.started <- text
	select {
	case <-a.release:
	case <-ctx.Done():
	}
	return text
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met in time")
}

func TestRefresherInitialText(t *testing.T) {
	r := NewRefresher(&scriptedAdviser{}, func() Snapshot { return Snapshot{} }, time.Millisecond)
	if got := r.Current(); got != InitialAdvice {
		t.Fatalf("initial = %q, want %q", got, InitialAdvice)
	}
}

func TestRefresherDebounceCollapsesBursts(t *testing.T) {
	adviser := &scriptedAdviser{started: make(chan string, 8), release: make(chan struct{})}
	close(adviser.release) // answer immediately

	r := NewRefresher(adviser, func() Snapshot { return Snapshot{} }, 30*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() { _ = r.Run(ctx); close(done) }()

	// A burst of mutations within the debounce window.
	for i := 0; i < 5; i++ {
		r.Notify()
		time.Sleep(2 * time.Millisecond)
	}
	waitFor(t, func() bool { return adviser.requests.Load() >= 1 })
	time.Sleep(60 * time.Millisecond)
	if got := adviser.requests.Load(); got != 1 {
		t.Fatalf("burst produced %d requests, want 1", got)
	}
	waitFor(t, func() bool { return r.Current() == "advice-1" })

	cancel()
	<-done
}

func TestRefresherStaleResponseDoesNotOverwrite(t *testing.T) {
	adviser := &scriptedAdviser{started: make(chan string, 8), release: make(chan struct{})}

	r := NewRefresher(adviser, func() Snapshot { return Snapshot{} }, 5*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() { _ = r.Run(ctx); close(done) }()

	// First request starts and hangs.
	r.Notify()
	<-adviser.started

	// Second mutation supersedes it; its request also starts.
	r.Notify()
	<-adviser.started

	// Release both: the first resolves late but its token is stale.
	close(adviser.release)
	waitFor(t, func() bool { return r.Current() == "advice-2" })
	time.Sleep(20 * time.Millisecond)
	if got := r.Current(); got != "advice-2" {
		t.Fatalf("stale response overwrote display: %q", got)
	}

	cancel()
	<-done
}
