package contracts

// RecordingMonitor continuously ingests MIDI events from an input device,
// buffers them in memory, and flushes the buffer to durable storage after a
// quiet period or on a manual trigger. No event is ever silently dropped:
// buffered events survive device loss, and a failed write leaves the drained
// snapshot in the buffer for a later retry.
type RecordingMonitor interface {
	// StartMonitoring opens the input device, creates a fresh recording
	// session and arms the auto-save timer. Returns ErrDeviceUnavailable when
	// no device can be opened and ErrAlreadyMonitoring when a session is
	// already live.
	StartMonitoring() error
	// StopMonitoring cancels the timer, flushes any remaining buffered
	// events, closes the input device and ends the session.
	StopMonitoring() error
	// ManualSave flushes the buffer to the manual-save directory and returns
	// the new file path. With an empty buffer it returns the most recently
	// saved file path, or ErrNothingToSave when no prior file exists.
	ManualSave() (string, error)
	// RetryReconnect forces a new reconnection window after reconnection has
	// failed. Returns ErrNotMonitoring with no live session and
	// ErrRetryNotApplicable when reconnection has not failed.
	RetryReconnect() error
	// Status returns a point-in-time snapshot; it never blocks producers.
	Status() Status
	// BufferedEventCount returns the number of unflushed events.
	BufferedEventCount() int
	// ClearBuffer discards all unflushed events. Explicit operator action
	// only; nothing else ever drops buffered data.
	ClearBuffer()
	// ListDevices lists the available MIDI input devices.
	ListDevices() ([]DeviceInfo, error)
}
