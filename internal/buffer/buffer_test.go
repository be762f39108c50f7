package buffer

import (
	"sync"
	"testing"
	"time"

	"github.com/leandrodaf/midirec/sdk/contracts"
)

func noteOn(key uint8) contracts.Event {
	return contracts.Event{Kind: contracts.NoteOn, Channel: 0, Data1: key, Data2: 100}
}

// TestAppendDrainOrder verifies drain returns events in arrival order.
func TestAppendDrainOrder(t *testing.T) {
	buf := New()
	for i := 0; i < 10; i++ {
		buf.Append(noteOn(uint8(60+i)), time.Now())
	}

	drained := buf.Drain()
	if len(drained) != 10 {
		t.Fatalf("expected 10 events, got %d", len(drained))
	}
	for i, ev := range drained {
		if ev.Data1 != uint8(60+i) {
			t.Errorf("position %d: expected key %d, got %d", i, 60+i, ev.Data1)
		}
	}
}

// TestDrainIdempotence verifies a second drain with no new appends is empty.
func TestDrainIdempotence(t *testing.T) {
	buf := New()
	buf.Append(noteOn(60), time.Now())

	if got := buf.Drain(); len(got) != 1 {
		t.Fatalf("first drain: expected 1 event, got %d", len(got))
	}
	if got := buf.Drain(); len(got) != 0 {
		t.Errorf("second drain: expected empty, got %d events", len(got))
	}
	if buf.HasEvents() {
		t.Error("buffer should report no events after drain")
	}
}

// TestDrainEmptyBuffer verifies draining an empty buffer is not an error.
func TestDrainEmptyBuffer(t *testing.T) {
	buf := New()
	if got := buf.Drain(); len(got) != 0 {
		t.Errorf("expected empty drain, got %d events", len(got))
	}
}

// TestLastEventTime verifies appends advance the last event time.
func TestLastEventTime(t *testing.T) {
	buf := New()
	if !buf.LastEventTime().IsZero() {
		t.Error("expected zero last event time on a fresh buffer")
	}
	first := time.Now()
	buf.Append(noteOn(60), first)
	second := first.Add(time.Second)
	buf.Append(noteOn(61), second)
	if !buf.LastEventTime().Equal(second) {
		t.Errorf("expected last event time %v, got %v", second, buf.LastEventTime())
	}
}

// TestRestorePreservesOrder verifies a restored snapshot precedes events
// appended after the drain.
func TestRestorePreservesOrder(t *testing.T) {
	buf := New()
	buf.Append(noteOn(60), time.Now())
	buf.Append(noteOn(61), time.Now())

	snapshot := buf.Drain()
	buf.Append(noteOn(62), time.Now())
	buf.Restore(snapshot)

	drained := buf.Drain()
	want := []uint8{60, 61, 62}
	if len(drained) != len(want) {
		t.Fatalf("expected %d events, got %d", len(want), len(drained))
	}
	for i, key := range want {
		if drained[i].Data1 != key {
			t.Errorf("position %d: expected key %d, got %d", i, key, drained[i].Data1)
		}
	}
}

// TestConcurrentAppendDrainPartition verifies events are partitioned into
// exactly two disjoint ordered groups around a concurrent drain, with no
// event lost or duplicated.
func TestConcurrentAppendDrainPartition(t *testing.T) {
	buf := New()
	const total = 1000

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < total; i++ {
			buf.Append(contracts.Event{Kind: contracts.NoteOn, Data1: uint8(i % 128), Data2: 100}, time.Now())
		}
	}()

	// Drain mid-stream.
	time.Sleep(time.Millisecond)
	first := buf.Drain()
	wg.Wait()
	second := buf.Drain()

	if len(first)+len(second) != total {
		t.Fatalf("expected %d events across both drains, got %d + %d",
			total, len(first), len(second))
	}
	// Arrival order must be preserved across the partition boundary.
	all := append(append([]contracts.Event{}, first...), second...)
	for i, ev := range all {
		if ev.Data1 != uint8(i%128) {
			t.Fatalf("position %d: expected key %d, got %d", i, i%128, ev.Data1)
		}
	}
}

// TestActiveFlag verifies the session-active flag round-trips.
func TestActiveFlag(t *testing.T) {
	buf := New()
	if buf.Active() {
		t.Error("fresh buffer should be inactive")
	}
	buf.SetActive(true)
	if !buf.Active() {
		t.Error("buffer should be active after SetActive(true)")
	}
	buf.SetActive(false)
	if buf.Active() {
		t.Error("buffer should be inactive after SetActive(false)")
	}
}
