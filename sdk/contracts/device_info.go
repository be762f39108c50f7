package contracts

// DeviceInfo contains information about a MIDI input device.
type DeviceInfo struct {
	Name         string // Device (port) name; the key used for reconnection.
	Manufacturer string // Device manufacturer.
	EntityName   string // Name of the entity to which the device belongs.
}
