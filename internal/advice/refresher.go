package advice

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"piggy/internal/core"
)

// Adviser is implemented by Client. Split out so the refresher can be
// tested without a network stack.
type Adviser interface {
	Advise(ctx context.Context, summary core.FinancialSummary, latest *core.Transaction, goals []core.Goal) string
}

// Snapshot is the state handed to the adviser for one request.
type Snapshot struct {
	Summary core.FinancialSummary
	Latest  *core.Transaction
	Goals   []core.Goal
}

// SnapshotFunc captures the current state at request time.
type SnapshotFunc func() Snapshot

// Refresher owns the displayed advice text. Mutations call Notify;
// after a quiet debounce window one request is launched with a
// monotonically increasing token, and a completion is applied only if
// its token is still the newest. A newer trigger cancels the in-flight
// request's context, so a slow stale response can never overwrite a
// fresher one.
type Refresher struct {
	adviser  Adviser
	snapshot SnapshotFunc
	debounce time.Duration

	notify chan struct{}
	token  atomic.Uint64

	mu      sync.Mutex
	current string
	cancel  context.CancelFunc
	pending sync.WaitGroup
}

func NewRefresher(adviser Adviser, snapshot SnapshotFunc, debounce time.Duration) *Refresher {
	return &Refresher{
		adviser:  adviser,
		snapshot: snapshot,
		debounce: debounce,
		notify:   make(chan struct{}, 1),
		current:  InitialAdvice,
	}
}

// Current returns the advice text to display.
func (r *Refresher) Current() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// Notify marks the state dirty. Safe from any goroutine; rapid calls
// collapse into a single request.
func (r *Refresher) Notify() {
	select {
	case r.notify <- struct{}{}:
	default:
	}
}

// Run drives the debounce loop until ctx is cancelled. It waits for
// in-flight requests before returning.
func (r *Refresher) Run(ctx context.Context) error {
	var (
		timer  *time.Timer
		timerC <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
		r.cancelInFlight()
		r.pending.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.notify:
			if timer == nil {
				timer = time.NewTimer(r.debounce)
				timerC = timer.C
				continue
			}
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(r.debounce)
		case <-timerC:
			timer = nil
			timerC = nil
			r.launch(ctx)
		}
	}
}

func (r *Refresher) launch(ctx context.Context) {
	snap := r.snapshot()
	token := r.token.Add(1)

	r.mu.Lock()
	if r.cancel != nil {
		r.cancel() // supersede the in-flight request
	}
	cctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.mu.Unlock()

	r.pending.Add(1)
	go func() {
		defer r.pending.Done()
		defer cancel()
		text := r.adviser.Advise(cctx, snap.Summary, snap.Latest, snap.Goals)
		if r.token.Load() != token {
			return // a newer request owns the display now
		}
		r.mu.Lock()
		r.current = text
		r.mu.Unlock()
	}()
}

func (r *Refresher) cancelInFlight() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		r.cancel()
	}
}
