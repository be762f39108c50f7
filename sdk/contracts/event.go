package contracts

import "time"

// EventKind classifies a captured MIDI event.
type EventKind uint8

const (
	// NoteOn is a key-press event (status 0x9n with velocity > 0).
	NoteOn EventKind = iota
	// NoteOff is a key-release event (status 0x8n, or 0x9n with velocity 0).
	NoteOff
	// ControlChange is a controller movement event (status 0xBn).
	ControlChange
	// Other carries any message the monitor does not interpret; the raw
	// bytes are preserved in Event.Raw so nothing is lost on export.
	Other
)

// String returns a human-readable name for the event kind.
func (k EventKind) String() string {
	switch k {
	case NoteOn:
		return "note_on"
	case NoteOff:
		return "note_off"
	case ControlChange:
		return "control_change"
	default:
		return "other"
	}
}

// Event is one timestamped MIDI message as delivered by an event source.
// Events are immutable once created.
type Event struct {
	Kind      EventKind     // Kind classifies the message.
	Channel   uint8         // Channel is the MIDI channel (0-15).
	Data1     uint8         // Data1 is the note or controller number (0-127).
	Data2     uint8         // Data2 is the velocity or controller value (0-127).
	Raw       []byte        // Raw holds the full message bytes for Other events.
	Timestamp time.Duration // Timestamp is the elapsed time since capture started.
}

// KindOfStatus maps a raw MIDI status byte (with the channel nibble masked
// off by the caller or not) to an EventKind.
func KindOfStatus(status byte, velocity byte) EventKind {
	switch status & 0xF0 {
	case 0x90:
		if velocity == 0 {
			return NoteOff
		}
		return NoteOn
	case 0x80:
		return NoteOff
	case 0xB0:
		return ControlChange
	default:
		return Other
	}
}

// MIDIEventFilter allows users to specify which event kinds to capture.
type MIDIEventFilter struct {
	Kinds []EventKind // List of event kinds to keep.
}

// Allows reports whether the filter permits the given kind. A nil filter
// permits everything.
func (f *MIDIEventFilter) Allows(kind EventKind) bool {
	if f == nil || len(f.Kinds) == 0 {
		return true
	}
	for _, k := range f.Kinds {
		if k == kind {
			return true
		}
	}
	return false
}
