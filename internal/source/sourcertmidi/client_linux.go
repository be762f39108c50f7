//go:build linux && cgo
// +build linux,cgo

package sourcertmidi

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"github.com/leandrodaf/midirec/internal/source/backend"
	"github.com/leandrodaf/midirec/sdk/contracts"
)

// Error definitions for MIDI connection and handling issues.
var (
	ErrNoMIDIDevices   = errors.New("no MIDI devices found")
	ErrDeviceNotFound  = errors.New("MIDI device not found")
	ErrConnectionError = errors.New("error connecting to MIDI device")
)

// Client captures MIDI events through rtmidi on Linux (ALSA). Opening a
// device releases any previous binding, so the same client can be rebound to
// a replacement port after a disconnect.
type Client struct {
	logger contracts.Logger
	filter *contracts.MIDIEventFilter
	drv    *rtmididrv.Driver

	eventChannel atomic.Value // Atomic storage for the event channel.
	epochNano    atomic.Int64 // Capture epoch for relative timestamps.

	mu     sync.Mutex
	in     drivers.In
	stopFn func()
	device string
}

// NewBackend initializes the rtmidi driver.
func NewBackend(cfg backend.Config) (backend.Backend, error) {
	drv, err := rtmididrv.New()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectionError, err)
	}
	cfg.Logger.Info("rtmidi MIDI backend initialized")
	return &Client{
		logger: cfg.Logger,
		filter: cfg.Filter,
		drv:    drv,
	}, nil
}

// ListDevices retrieves the available MIDI input ports.
func (c *Client) ListDevices() ([]contracts.DeviceInfo, error) {
	ins, err := c.drv.Ins()
	if err != nil {
		return nil, fmt.Errorf("error listing MIDI inputs: %w", err)
	}
	devices := make([]contracts.DeviceInfo, len(ins))
	for i, in := range ins {
		name := in.String()
		devices[i] = contracts.DeviceInfo{
			Name:         name,
			EntityName:   name,
			Manufacturer: "rtmidi",
		}
	}
	return devices, nil
}

// Open binds to the named input port and starts listening. An empty name
// selects the first available port.
func (c *Client) Open(device string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.releaseLocked()

	ins, err := c.drv.Ins()
	if err != nil {
		return "", fmt.Errorf("error listing MIDI inputs: %w", err)
	}
	if len(ins) == 0 {
		return "", ErrNoMIDIDevices
	}

	var in drivers.In
	if device == "" {
		in = ins[0]
	} else {
		for _, candidate := range ins {
			if candidate.String() == device {
				in = candidate
				break
			}
		}
	}
	if in == nil {
		return "", fmt.Errorf("%w: %q", ErrDeviceNotFound, device)
	}

	if err := in.Open(); err != nil {
		return "", fmt.Errorf("%w: opening %q: %v", ErrConnectionError, in.String(), err)
	}

	stop, err := midi.ListenTo(in, c.handleMessage, midi.HandleError(func(listenErr error) {
		c.logger.Warn("MIDI listener error",
			c.logger.Field().Error("error", listenErr))
	}))
	if err != nil {
		in.Close()
		return "", fmt.Errorf("%w: listening on %q: %v", ErrConnectionError, in.String(), err)
	}

	c.in = in
	c.stopFn = stop
	c.device = in.String()
	c.logger.Info("MIDI device connected",
		c.logger.Field().String("device", c.device))
	return c.device, nil
}

// handleMessage translates driver messages into events and pushes them to the
// registered channel without blocking the driver callback.
func (c *Client) handleMessage(msg midi.Message, _ int32) {
	eventChannel, _ := c.eventChannel.Load().(chan<- contracts.Event)
	if eventChannel == nil {
		return
	}

	event := contracts.Event{
		Timestamp: time.Duration(time.Now().UnixNano() - c.epochNano.Load()),
	}
	var ch, key, vel, cc, val uint8
	switch {
	case msg.GetNoteStart(&ch, &key, &vel):
		event.Kind = contracts.NoteOn
		event.Channel, event.Data1, event.Data2 = ch, key, vel
	case msg.GetNoteEnd(&ch, &key):
		event.Kind = contracts.NoteOff
		event.Channel, event.Data1 = ch, key
	case msg.GetControlChange(&ch, &cc, &val):
		event.Kind = contracts.ControlChange
		event.Channel, event.Data1, event.Data2 = ch, cc, val
	default:
		event.Kind = contracts.Other
		event.Raw = append([]byte(nil), msg.Bytes()...)
	}

	if !c.filter.Allows(event.Kind) {
		return
	}
	select {
	case eventChannel <- event:
	default:
		c.logger.Warn("Event buffer full; dropping MIDI event")
	}
}

// StartCapture registers the event channel and resets the timestamp epoch.
func (c *Client) StartCapture(events chan<- contracts.Event) {
	c.epochNano.Store(time.Now().UnixNano())
	c.eventChannel.Store(events)
	c.logger.Info("Starting MIDI event capture")
}

// Close releases the port binding. The driver stays open so the client can be
// rebound by a later Open.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.releaseLocked()
	return nil
}

func (c *Client) releaseLocked() {
	if c.stopFn != nil {
		c.stopFn()
		c.stopFn = nil
	}
	if c.in != nil {
		_ = c.in.Close()
		c.in = nil
	}
	c.device = ""
}
