package buffer

import (
	"sync"
	"time"

	"github.com/leandrodaf/midirec/sdk/contracts"
)

// EventBuffer is an ordered, append-only sequence of events accumulated since
// the last drain. All operations hold a single mutex for O(1) critical
// sections; a drain is an atomic swap, so producers are never blocked across
// a file write.
type EventBuffer struct {
	mu        sync.Mutex
	events    []contracts.Event
	lastEvent time.Time
	active    bool
}

// New returns an empty, inactive buffer.
func New() *EventBuffer {
	return &EventBuffer{}
}

// Append adds one event in arrival order and records its arrival time. Safe
// to call concurrently with Drain.
func (b *EventBuffer) Append(ev contracts.Event, arrivedAt time.Time) {
	b.mu.Lock()
	b.events = append(b.events, ev)
	b.lastEvent = arrivedAt
	b.mu.Unlock()
}

// Drain atomically returns the accumulated events and resets the buffer to
// empty. Returns nil when nothing is pending. No event returned by a drain is
// ever returned by a subsequent drain.
func (b *EventBuffer) Drain() []contracts.Event {
	b.mu.Lock()
	drained := b.events
	b.events = nil
	b.mu.Unlock()
	return drained
}

// Restore puts a previously drained snapshot back at the front of the buffer,
// ahead of anything appended since the drain. Used when a flush fails so no
// event is lost and ordering is preserved.
func (b *EventBuffer) Restore(snapshot []contracts.Event) {
	if len(snapshot) == 0 {
		return
	}
	b.mu.Lock()
	b.events = append(snapshot, b.events...)
	b.mu.Unlock()
}

// HasEvents is a non-destructive check for pending events.
func (b *EventBuffer) HasEvents() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.events) > 0
}

// Len returns the number of pending events.
func (b *EventBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.events)
}

// LastEventTime returns the arrival time of the most recent append, or the
// zero time when nothing has arrived yet.
func (b *EventBuffer) LastEventTime() time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastEvent
}

// SetActive marks whether the buffer belongs to a live session.
func (b *EventBuffer) SetActive(active bool) {
	b.mu.Lock()
	b.active = active
	b.mu.Unlock()
}

// Active reports whether the buffer belongs to a live session.
func (b *EventBuffer) Active() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.active
}
