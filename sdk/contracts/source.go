package contracts

import "time"

// Notification reports a liveness change of the opened input port.
type Notification struct {
	Connected bool      // Connected is true on (re)connect, false on loss.
	Device    string    // Device is the port name the change refers to.
	At        time.Time // At is when the change was observed.
}

// Source is the event source adapter consumed by the recording monitor. It
// wraps a platform MIDI input and exposes a push-based stream of timestamped
// events plus connect/disconnect notifications.
//
// Implementations guarantee in-order delivery of events as received from the
// platform driver, and surface a disconnect within one polling cycle.
type Source interface {
	// ListDevices lists the available MIDI input devices in driver order.
	ListDevices() ([]DeviceInfo, error)
	// Open connects to the named input device and begins delivery. An empty
	// name selects the first available device. Returns ErrDeviceUnavailable
	// (possibly wrapped) when nothing can be opened. Open may be called again
	// after a disconnect to rebind the same source to a replacement port.
	Open(device string) error
	// DeviceName returns the name of the currently opened device, or "".
	DeviceName() string
	// StartCapture registers the channel that receives captured events. The
	// channel is retained across reconnections.
	StartCapture(events chan<- Event)
	// Notifications returns the channel carrying connect/disconnect changes.
	Notifications() <-chan Notification
	// Close releases the device and stops all background work.
	Close() error
}
