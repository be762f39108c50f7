//go:build !windows
// +build !windows

package sourcewindows

import (
	"fmt"

	"github.com/leandrodaf/midirec/internal/source/backend"
	"github.com/leandrodaf/midirec/sdk/contracts"
)

type dummyClient struct {
	logger contracts.Logger
}

// NewBackend initializes a dummy backend for non-Windows systems.
func NewBackend(cfg backend.Config) (backend.Backend, error) {
	cfg.Logger.Info("Using dummy winmm backend for non-Windows system")
	return &dummyClient{logger: cfg.Logger}, nil
}

func (c *dummyClient) ListDevices() ([]contracts.DeviceInfo, error) {
	c.logger.Warn("ListDevices called on dummy winmm backend")
	return nil, fmt.Errorf("winmm capture is not available on this platform")
}

func (c *dummyClient) Open(device string) (string, error) {
	c.logger.Warn("Open called on dummy winmm backend")
	return "", fmt.Errorf("winmm capture is not available on this platform")
}

func (c *dummyClient) StartCapture(events chan<- contracts.Event) {
	c.logger.Warn("StartCapture called on dummy winmm backend")
}

func (c *dummyClient) Close() error {
	c.logger.Warn("Close called on dummy winmm backend")
	return nil
}
