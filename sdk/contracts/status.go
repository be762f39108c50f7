package contracts

// ConnectionState describes the liveness of the current input device.
type ConnectionState int32

const (
	// Connected means events are being delivered from the opened device.
	Connected ConnectionState = iota
	// Disconnected means the device was lost and reconnection has not yet
	// begun.
	Disconnected
	// Reconnecting means the bounded reconnection window is in progress.
	Reconnecting
	// Failed means the reconnection window was exhausted; buffered events are
	// retained and a retry may be forced.
	Failed
)

// String returns a human-readable name for the connection state.
func (s ConnectionState) String() string {
	switch s {
	case Connected:
		return "connected"
	case Disconnected:
		return "disconnected"
	case Reconnecting:
		return "reconnecting"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Status is a read-only snapshot of the monitor, pollable at any time without
// blocking event delivery.
type Status struct {
	State             ConnectionState // State of the input device.
	Device            string          // Device currently (or last) opened.
	IsRecording       bool            // IsRecording is true while a session is live.
	HasBufferedEvents bool            // HasBufferedEvents is true when unflushed events exist.
	BufferedEvents    int             // BufferedEvents counts unflushed events.
	LastSavedPath     string          // LastSavedPath is the most recent output file.
	LastError         string          // LastError is the most recent surfaced error, if any.
	FellBackToPort    bool            // FellBackToPort is true when reconnection switched ports.
}
