package contracts

import "errors"

// Error definitions for monitoring, device and persistence failures.
var (
	// ErrDeviceUnavailable indicates no MIDI input device could be opened at
	// start. The caller may retry or pick another device.
	ErrDeviceUnavailable = errors.New("no MIDI input device available")
	// ErrDeviceDisconnected indicates the active input device was lost. It is
	// handled internally by reconnection and surfaced through the status
	// snapshot rather than returned from monitoring calls.
	ErrDeviceDisconnected = errors.New("MIDI input device disconnected")
	// ErrReconnectionFailed indicates the bounded reconnection window was
	// exhausted without finding a usable input port. Buffered events are
	// retained and a retry may be forced.
	ErrReconnectionFailed = errors.New("MIDI reconnection attempts exhausted")
	// ErrWriteFailed indicates the file sink failed even after the immediate
	// retry. The drained events are restored to the buffer.
	ErrWriteFailed = errors.New("failed to write MIDI file")
	// ErrNothingToSave indicates a manual save found neither buffered events
	// nor a previously saved recording.
	ErrNothingToSave = errors.New("no buffered events and no previous recording")
	// ErrRetryNotApplicable indicates RetryReconnect was called while
	// reconnection has not failed.
	ErrRetryNotApplicable = errors.New("reconnection retry only applies after a failed reconnection")
	// ErrAlreadyMonitoring indicates StartMonitoring was called while a
	// session is live.
	ErrAlreadyMonitoring = errors.New("monitoring already in progress")
	// ErrNotMonitoring indicates a session-scoped call was made with no live
	// session.
	ErrNotMonitoring = errors.New("monitoring is not active")
)
