package timer

import (
	"sync"
	"time"
)

// Expiry is one auto-save deadline firing, tagged with the generation that
// armed it. Consumers compare Gen against Current to discard stale firings
// that raced with a reset.
type Expiry struct {
	Gen     uint64    // Gen is the arm generation that produced this expiry.
	ArmedAt time.Time // ArmedAt is when that generation was armed.
}

// AutoSaveTimer is a cancellable, restartable countdown. At most one deadline
// is active at a time; resetting cancels the previous deadline and arms a
// fresh one from "now". Expiries are delivered as tagged values on a channel
// rather than through an arbitrary callback, so the consumer handles them on
// its own goroutine.
//
// Guarantees: a deadline fires at most once per arm, and a generation armed
// before Stop returned never reaches the channel afterwards.
type AutoSaveTimer struct {
	mu       sync.Mutex
	timeout  time.Duration
	timer    *time.Timer
	gen      uint64
	armedAt  time.Time
	expiries chan Expiry
}

// New returns an unarmed timer with the given countdown duration.
func New(timeout time.Duration) *AutoSaveTimer {
	return &AutoSaveTimer{
		timeout:  timeout,
		expiries: make(chan Expiry, 1),
	}
}

// Start arms a fresh deadline, cancelling any pending one.
func (t *AutoSaveTimer) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.arm()
}

// Reset cancels any pending deadline and arms a fresh one with the same
// duration, computed from now. A reset that races with an in-flight expiry
// either cancels it (the generation check fails) or the expiry was already
// queued; the consumer's generation check resolves the latter.
func (t *AutoSaveTimer) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.arm()
}

// Stop cancels any pending deadline without firing. No expiry for a
// generation armed before Stop is delivered after Stop returns.
func (t *AutoSaveTimer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.gen++
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	// Discard an expiry that was queued before the cancellation.
	select {
	case <-t.expiries:
	default:
	}
}

// Expiries returns the channel carrying deadline firings. Capacity one; a
// queued expiry is superseded rather than accumulated.
func (t *AutoSaveTimer) Expiries() <-chan Expiry {
	return t.expiries
}

// Current returns the generation of the most recent arm. An expiry whose Gen
// differs was cancelled after queueing and must be ignored.
func (t *AutoSaveTimer) Current() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.gen
}

// Timeout returns the configured countdown duration.
func (t *AutoSaveTimer) Timeout() time.Duration {
	return t.timeout
}

func (t *AutoSaveTimer) arm() {
	t.gen++
	gen := t.gen
	armedAt := time.Now()
	t.armedAt = armedAt
	if t.timer != nil {
		t.timer.Stop()
	}
	t.timer = time.AfterFunc(t.timeout, func() {
		t.fire(gen, armedAt)
	})
}

func (t *AutoSaveTimer) fire(gen uint64, armedAt time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if gen != t.gen {
		// A reset or stop won the race; this firing is a no-op.
		return
	}
	select {
	case t.expiries <- Expiry{Gen: gen, ArmedAt: armedAt}:
	default:
	}
}
