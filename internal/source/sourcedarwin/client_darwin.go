//go:build darwin
// +build darwin

package sourcedarwin

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/youpy/go-coremidi"

	"github.com/leandrodaf/midirec/internal/source/backend"
	"github.com/leandrodaf/midirec/sdk/contracts"
)

// Error definitions for MIDI connection and handling issues.
var (
	ErrNoMIDIDevices        = errors.New("no MIDI devices found")
	ErrDeviceNotFound       = errors.New("MIDI device not found")
	ErrMIDIConnectionError  = errors.New("error connecting to MIDI device")
	ErrCreateInputPort      = errors.New("error creating input port")
	ErrIncompleteMIDIPacket = errors.New("incomplete MIDI packet")
)

const clientName = "midirec"

// internalPortConnection is an interface for handling disconnection from a
// MIDI port.
type internalPortConnection interface {
	Disconnect()
}

// Client captures MIDI events through CoreMIDI on macOS. Opening a device
// releases any previous port connection, so the same client can be rebound to
// a replacement port after a disconnect.
type Client struct {
	logger contracts.Logger
	filter *contracts.MIDIEventFilter
	client coremidi.Client

	eventChannel atomic.Value // Atomic storage for the event channel.
	epochNano    atomic.Int64 // Capture epoch for relative timestamps.

	mu        sync.Mutex
	inputPort coremidi.InputPort
	portConn  internalPortConnection
	device    string
	wg        sync.WaitGroup
}

// NewBackend initializes a CoreMIDI client.
func NewBackend(cfg backend.Config) (backend.Backend, error) {
	client, err := coremidi.NewClient(clientName)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMIDIConnectionError, err)
	}
	cfg.Logger.Info("CoreMIDI backend initialized")
	return &Client{
		logger: cfg.Logger,
		filter: cfg.Filter,
		client: client,
	}, nil
}

// ListDevices retrieves the available MIDI sources.
func (c *Client) ListDevices() ([]contracts.DeviceInfo, error) {
	sources, err := coremidi.AllSources()
	if err != nil {
		return nil, fmt.Errorf("error listing MIDI sources: %w", err)
	}
	if len(sources) == 0 {
		c.logger.Warn(ErrNoMIDIDevices.Error())
		return nil, ErrNoMIDIDevices
	}

	devices := make([]contracts.DeviceInfo, len(sources))
	for i, source := range sources {
		sourceEntity := source.Entity()
		devices[i] = contracts.DeviceInfo{
			Name:         source.Name(),
			EntityName:   sourceEntity.Name(),
			Manufacturer: sourceEntity.Manufacturer(),
		}
	}
	return devices, nil
}

// Open connects to the named MIDI source. An empty name selects the first
// available source. Any previous connection is released first.
func (c *Client) Open(device string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	sources, err := coremidi.AllSources()
	if err != nil {
		return "", fmt.Errorf("error retrieving MIDI sources: %w", err)
	}
	if len(sources) == 0 {
		return "", ErrNoMIDIDevices
	}

	var selected *coremidi.Source
	if device == "" {
		selected = &sources[0]
	} else {
		for i := range sources {
			if sources[i].Name() == device {
				selected = &sources[i]
				break
			}
		}
	}
	if selected == nil {
		return "", fmt.Errorf("%w: %q", ErrDeviceNotFound, device)
	}

	if c.portConn != nil {
		c.portConn.Disconnect()
		c.portConn = nil
	}

	c.inputPort, err = coremidi.NewInputPort(c.client, "Input Port", c.handleMIDIMessage)
	if err != nil {
		c.logger.Error(ErrCreateInputPort.Error())
		return "", fmt.Errorf("%w: %v", ErrCreateInputPort, err)
	}

	c.portConn, err = c.inputPort.Connect(*selected)
	if err != nil {
		c.logger.Error(ErrMIDIConnectionError.Error())
		return "", fmt.Errorf("%w: %v", ErrMIDIConnectionError, err)
	}

	c.device = selected.Name()
	c.logger.Info("MIDI device connected",
		c.logger.Field().String("device", c.device))
	return c.device, nil
}

// handleMIDIMessage translates incoming packets into events and pushes them
// to the registered channel without blocking the CoreMIDI callback.
func (c *Client) handleMIDIMessage(source coremidi.Source, packet coremidi.Packet) {
	c.wg.Add(1)
	defer c.wg.Done()

	eventChannel, _ := c.eventChannel.Load().(chan<- contracts.Event)
	if eventChannel == nil {
		return
	}
	if len(packet.Data) < 3 {
		c.logger.Warn(ErrIncompleteMIDIPacket.Error())
		return
	}

	status := packet.Data[0]
	data1 := packet.Data[1]
	data2 := packet.Data[2]
	kind := contracts.KindOfStatus(status, data2)

	event := contracts.Event{
		Kind:      kind,
		Channel:   status & 0x0F,
		Data1:     data1,
		Data2:     data2,
		Timestamp: time.Duration(time.Now().UnixNano() - c.epochNano.Load()),
	}
	if kind == contracts.Other {
		event.Raw = append([]byte(nil), packet.Data...)
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

// Close disconnects from the device and waits for in-flight packet handling.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.portConn != nil {
		c.portConn.Disconnect()
		c.portConn = nil
	}
	c.device = ""
	c.mu.Unlock()

	c.wg.Wait()
	c.logger.Info("MIDI capture stopped")
	return nil
}
