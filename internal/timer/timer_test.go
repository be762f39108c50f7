package timer

import (
	"testing"
	"time"
)

// TestFiresAfterTimeout verifies an armed timer delivers exactly one expiry.
func TestFiresAfterTimeout(t *testing.T) {
	tm := New(20 * time.Millisecond)
	armed := time.Now()
	tm.Start()

	select {
	case exp := <-tm.Expiries():
		if elapsed := time.Since(armed); elapsed < 20*time.Millisecond {
			t.Errorf("fired after %v, before the 20ms deadline", elapsed)
		}
		if exp.Gen != tm.Current() {
			t.Errorf("expiry generation %d does not match current %d", exp.Gen, tm.Current())
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for expiry")
	}

	// No second firing for the same arm.
	select {
	case <-tm.Expiries():
		t.Fatal("timer fired twice for one arm")
	case <-time.After(60 * time.Millisecond):
	}
}

// TestResetDefersDeadline verifies N resets produce at most one callback, no
// earlier than the timeout after the last reset.
func TestResetDefersDeadline(t *testing.T) {
	tm := New(50 * time.Millisecond)
	tm.Start()

	for i := 0; i < 5; i++ {
		time.Sleep(20 * time.Millisecond)
		tm.Reset()
	}
	lastReset := time.Now()

	select {
	case <-tm.Expiries():
		if elapsed := time.Since(lastReset); elapsed < 50*time.Millisecond {
			t.Errorf("fired %v after the last reset, expected at least 50ms", elapsed)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for expiry")
	}

	select {
	case <-tm.Expiries():
		t.Fatal("more than one expiry delivered")
	case <-time.After(120 * time.Millisecond):
	}
}

// TestStopCancelsWithoutFiring verifies no expiry is delivered after Stop
// returns.
func TestStopCancelsWithoutFiring(t *testing.T) {
	tm := New(30 * time.Millisecond)
	tm.Start()
	tm.Stop()

	select {
	case <-tm.Expiries():
		t.Fatal("expiry delivered after Stop")
	case <-time.After(80 * time.Millisecond):
	}
}

// TestStopDiscardsQueuedExpiry verifies an expiry queued before Stop is not
// observable afterwards.
func TestStopDiscardsQueuedExpiry(t *testing.T) {
	tm := New(10 * time.Millisecond)
	tm.Start()
	time.Sleep(30 * time.Millisecond) // let the expiry queue up
	tm.Stop()

	select {
	case <-tm.Expiries():
		t.Fatal("queued expiry survived Stop")
	case <-time.After(30 * time.Millisecond):
	}
}

// TestStaleGenerationDetectable verifies the consumer can detect an expiry
// superseded by a later reset.
func TestStaleGenerationDetectable(t *testing.T) {
	tm := New(10 * time.Millisecond)
	tm.Start()
	time.Sleep(30 * time.Millisecond) // expiry for gen 1 is queued

	tm.Reset() // gen 2

	select {
	case exp := <-tm.Expiries():
		if exp.Gen == tm.Current() {
			t.Error("expiry queued before the reset should carry a stale generation")
		}
	case <-time.After(5 * time.Millisecond):
		// The queued expiry may also have been consumed by the reset path;
		// either outcome is acceptable as long as no current-generation
		// expiry fires early.
	}
}

// TestRestartAfterStop verifies the timer can be re-armed after Stop.
func TestRestartAfterStop(t *testing.T) {
	tm := New(15 * time.Millisecond)
	tm.Start()
	tm.Stop()
	tm.Start()

	select {
	case exp := <-tm.Expiries():
		if exp.Gen != tm.Current() {
			t.Errorf("expiry generation %d does not match current %d", exp.Gen, tm.Current())
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for expiry after restart")
	}
}
