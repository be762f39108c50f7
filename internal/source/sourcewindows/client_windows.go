//go:build windows
// +build windows

package sourcewindows

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/leandrodaf/midirec/internal/source/backend"
	"github.com/leandrodaf/midirec/sdk/contracts"
)

// Type definitions for MIDI handles
type HMIDIIN windows.Handle

// Constants for callback flags
const (
	CALLBACK_FUNCTION = 0x00030000 // Indicates that the callback is a function
	MIDI_IO_STATUS    = 0x00000020 // MIDI input/output status
)

// Constants for MIDI message types
const (
	MIM_OPEN      = 0x3C1 // MIDI device opened
	MIM_CLOSE     = 0x3C2 // MIDI device closed
	MIM_DATA      = 0x3C3 // MIDI data received
	MIM_ERROR     = 0x3C5 // MIDI error
	MIM_LONGERROR = 0x3C6 // Long MIDI error
	MIM_MOREDATA  = 0x3CC // More MIDI data available
)

// Error definitions for MIDI connection and handling issues.
var (
	ErrNoMIDIDevices  = errors.New("no MIDI devices found")
	ErrDeviceNotFound = errors.New("MIDI device not found")
)

// Struct representing MIDI device capabilities
type midiInCaps struct {
	wMid           uint16
	wPid           uint16
	vDriverVersion uint32
	szPname        [32]uint16
	dwSupport      uint32
}

// Load the winmm.dll library and required functions
var (
	winmm                = windows.NewLazySystemDLL("winmm.dll")
	procMidiInGetNumDevs = winmm.NewProc("midiInGetNumDevs")
	procMidiInGetDevCaps = winmm.NewProc("midiInGetDevCapsW")
	procMidiInOpen       = winmm.NewProc("midiInOpen")
	procMidiInStart      = winmm.NewProc("midiInStart")
	procMidiInStop       = winmm.NewProc("midiInStop")
	procMidiInClose      = winmm.NewProc("midiInClose")
)

// Client captures MIDI events through winmm on Windows. Opening a device
// releases any previous handle, so the same client can be rebound to a
// replacement port after a disconnect.
type Client struct {
	logger contracts.Logger
	filter *contracts.MIDIEventFilter

	eventChannel atomic.Value // Atomic storage for the event channel.
	epochNano    atomic.Int64 // Capture epoch for relative timestamps.

	mu       sync.Mutex
	handle   HMIDIIN
	open     bool
	callback uintptr
	device   string
}

// NewBackend creates a winmm MIDI backend.
func NewBackend(cfg backend.Config) (backend.Backend, error) {
	cfg.Logger.Info("winmm MIDI backend initialized")
	return &Client{
		logger: cfg.Logger,
		filter: cfg.Filter,
	}, nil
}

// ListDevices lists the available MIDI input devices.
func (c *Client) ListDevices() ([]contracts.DeviceInfo, error) {
	r0, _, _ := procMidiInGetNumDevs.Call()
	numDevices := uint32(r0)
	if numDevices == 0 {
		c.logger.Warn(ErrNoMIDIDevices.Error())
		return nil, ErrNoMIDIDevices
	}

	devices := make([]contracts.DeviceInfo, 0, numDevices)
	for i := uint32(0); i < numDevices; i++ {
		var caps midiInCaps
		r1, _, _ := procMidiInGetDevCaps.Call(
			uintptr(i),
			uintptr(unsafe.Pointer(&caps)),
			unsafe.Sizeof(caps),
		)
		if r1 != 0 {
			c.logger.Warn(fmt.Sprintf("Failed to get information for MIDI device %d", i))
			continue
		}
		deviceName := windows.UTF16ToString(caps.szPname[:])
		devices = append(devices, contracts.DeviceInfo{
			Name:         deviceName,
			EntityName:   deviceName,
			Manufacturer: fmt.Sprintf("MID: %d PID: %d", caps.wMid, caps.wPid),
		})
	}
	return devices, nil
}

// Open binds to the named input device. An empty name selects the first
// available device. Any previous handle is released first.
func (c *Client) Open(device string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.open {
		if err := c.closeLocked(); err != nil {
			return "", fmt.Errorf("failed to release previous MIDI handle: %w", err)
		}
	}

	devices, err := c.ListDevices()
	if err != nil {
		return "", err
	}

	deviceID := -1
	if device == "" {
		deviceID = 0
		device = devices[0].Name
	} else {
		for i, d := range devices {
			if d.Name == device {
				deviceID = i
				break
			}
		}
	}
	if deviceID < 0 {
		return "", fmt.Errorf("%w: %q", ErrDeviceNotFound, device)
	}

	// windows.NewCallback allocations are never released, so the callback is
	// created once and reused across rebinds.
	if c.callback == 0 {
		c.callback = windows.NewCallback(midiInCallback)
	}
	fdwOpen := CALLBACK_FUNCTION | MIDI_IO_STATUS

	r1, _, callErr := procMidiInOpen.Call(
		uintptr(unsafe.Pointer(&c.handle)),
		uintptr(deviceID),
		c.callback,
		uintptr(unsafe.Pointer(c)),
		uintptr(fdwOpen),
	)
	if r1 != 0 {
		return "", fmt.Errorf("failed to open MIDI device %d: %v", deviceID, callErr)
	}

	r1, _, callErr = procMidiInStart.Call(uintptr(c.handle))
	if r1 != 0 {
		c.closeLocked()
		return "", fmt.Errorf("failed to start MIDI capture: %v", callErr)
	}

	c.open = true
	c.device = device
	c.logger.Info("MIDI device connected",
		c.logger.Field().String("device", device))
	return device, nil
}

// midiInCallback processes incoming MIDI messages on the driver thread.
func midiInCallback(hMidiIn uintptr, wMsg uint32, dwInstance uintptr, dwParam1 uintptr, dwParam2 uintptr) uintptr {
	c := (*Client)(unsafe.Pointer(dwInstance))

	switch wMsg {
	case MIM_OPEN:
		c.logger.Info("MIDI device opened")
	case MIM_CLOSE:
		c.logger.Info("MIDI device closed")
	case MIM_DATA:
		if dwParam2 == 0 {
			return 0
		}

		status := byte(dwParam1 & 0xFF)
		data1 := byte((dwParam1 >> 8) & 0xFF)
		data2 := byte((dwParam1 >> 16) & 0xFF)

		event := contracts.Event{
			Kind:      contracts.KindOfStatus(status, data2),
			Channel:   status & 0x0F,
			Data1:     data1,
			Data2:     data2,
			Timestamp: time.Duration(time.Now().UnixNano() - c.epochNano.Load()),
		}
		if event.Kind == contracts.Other {
			event.Raw = []byte{status, data1, data2}
		}

		if !c.filter.Allows(event.Kind) {
			return 0
		}

		if ch, ok := c.eventChannel.Load().(chan<- contracts.Event); ok && ch != nil {
			select {
			case ch <- event:
			default:
				c.logger.Warn("Event buffer full; dropping MIDI event")
			}
		}
	case MIM_ERROR, MIM_LONGERROR:
		c.logger.Error(fmt.Sprintf("MIDI error: msg=0x%X", wMsg))
	case MIM_MOREDATA:
		c.logger.Debug("Received MIM_MOREDATA message; ignored")
	default:
		c.logger.Warn(fmt.Sprintf("Unknown MIDI message: 0x%X", wMsg))
	}

	return 0
}

// StartCapture registers the event channel and resets the timestamp epoch.
func (c *Client) StartCapture(events chan<- contracts.Event) {
	c.epochNano.Store(time.Now().UnixNano())
	c.eventChannel.Store(events)
	c.logger.Info("Starting MIDI event capture")
}

// Close stops capture and releases the device handle.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open {
		return nil
	}
	if err := c.closeLocked(); err != nil {
		return err
	}
	c.logger.Info("MIDI capture stopped and device closed")
	return nil
}

// closeLocked stops the capture and releases resources.
func (c *Client) closeLocked() error {
	if c.handle == 0 {
		c.open = false
		return nil
	}

	r1, _, callErr := procMidiInStop.Call(uintptr(c.handle))
	if r1 != 0 {
		c.logger.Error(fmt.Sprintf("Failed to stop MIDI capture: %v", callErr))
		return fmt.Errorf("failed to stop MIDI capture: %v", callErr)
	}

	r1, _, callErr = procMidiInClose.Call(uintptr(c.handle))
	if r1 != 0 {
		c.logger.Error(fmt.Sprintf("Failed to close MIDI device: %v", callErr))
		return fmt.Errorf("failed to close MIDI device: %v", callErr)
	}

	c.open = false
	c.handle = 0
	c.device = ""
	return nil
}
