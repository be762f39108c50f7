//go:build !darwin
// +build !darwin

package sourcedarwin

import (
	"fmt"

	"github.com/leandrodaf/midirec/internal/source/backend"
	"github.com/leandrodaf/midirec/sdk/contracts"
)

type dummyClient struct {
	logger contracts.Logger
}

// NewBackend initializes a dummy backend for non-macOS systems.
func NewBackend(cfg backend.Config) (backend.Backend, error) {
	cfg.Logger.Info("Using dummy CoreMIDI backend for non-macOS system")
	return &dummyClient{logger: cfg.Logger}, nil
}

func (c *dummyClient) ListDevices() ([]contracts.DeviceInfo, error) {
	c.logger.Warn("ListDevices called on dummy CoreMIDI backend")
	return nil, fmt.Errorf("CoreMIDI capture is not available on this platform")
}

func (c *dummyClient) Open(device string) (string, error) {
	c.logger.Warn("Open called on dummy CoreMIDI backend")
	return "", fmt.Errorf("CoreMIDI capture is not available on this platform")
}

func (c *dummyClient) StartCapture(events chan<- contracts.Event) {
	c.logger.Warn("StartCapture called on dummy CoreMIDI backend")
}

func (c *dummyClient) Close() error {
	c.logger.Warn("Close called on dummy CoreMIDI backend")
	return nil
}
