package monitor

import (
	"github.com/leandrodaf/midirec/internal/monitor"
	"github.com/leandrodaf/midirec/sdk/contracts"
)

// NewRecordingMonitor creates a new recording monitor with the specified
// options. It applies default options and initializes the monitor.
//
// opts ...contracts.Option: A variadic list of option functions to customize
// the monitor configuration.
//
// Returns:
//   - contracts.RecordingMonitor: An instance of the recording monitor.
//   - error: An error, if any occurred during the creation of the monitor.
func NewRecordingMonitor(opts ...contracts.Option) (contracts.RecordingMonitor, error) {
	options, err := applyDefaultOptions(opts...)
	if err != nil {
		return nil, err
	}
	return monitor.New(options), nil
}
