package backend

import (
	"github.com/leandrodaf/midirec/sdk/contracts"
)

// Config carries what a platform backend needs to capture events.
type Config struct {
	Logger contracts.Logger           // Logger for logging events and errors.
	Filter *contracts.MIDIEventFilter // Optional filter applied at capture time.
}

// Backend is the platform-specific half of an event source: it binds to the
// driver and pushes events, while liveness supervision and disconnect
// notifications are layered on top by the source package.
type Backend interface {
	// ListDevices lists the available MIDI input devices in driver order.
	ListDevices() ([]contracts.DeviceInfo, error)
	// Open binds to the named input device, releasing any previous binding
	// first. An empty name selects the first available device. Returns the
	// resolved device name.
	Open(device string) (string, error)
	// StartCapture registers the channel receiving captured events and
	// resets the timestamp epoch.
	StartCapture(events chan<- contracts.Event)
	// Close releases the device binding. The backend stays usable; a later
	// Open may rebind it.
	Close() error
}
