package reconnect

import (
	"context"
	"fmt"
	"time"

	"github.com/leandrodaf/midirec/sdk/contracts"
)

// ListDevicesFunc enumerates the currently available MIDI input devices.
type ListDevicesFunc func() ([]contracts.DeviceInfo, error)

// Result is the outcome of one bounded reconnection window.
type Result struct {
	Device   string // Device is the port to reopen; empty on failure.
	FellBack bool   // FellBack is true when a different port than the lost one was selected.
	Attempts int    // Attempts is how many availability polls were made.
	Err      error  // Err is non-nil when the window was exhausted or cancelled.
}

// Manager runs bounded reconnection windows after device loss. It holds the
// lost port's name only; reopening the source is the caller's job.
type Manager struct {
	policy contracts.ReconnectPolicy
	logger contracts.Logger
}

// NewManager returns a manager applying the given policy. Zero policy fields
// fall back to 1s polling, a 30s window and an attempt bound derived from the
// two.
func NewManager(policy contracts.ReconnectPolicy, logger contracts.Logger) *Manager {
	if policy.PollInterval <= 0 {
		policy.PollInterval = time.Second
	}
	if policy.MaxWait <= 0 {
		policy.MaxWait = 30 * time.Second
	}
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = int(policy.MaxWait/policy.PollInterval) + 1
	}
	return &Manager{policy: policy, logger: logger}
}

// Reconnect polls device availability at the policy's fixed interval until
// the lost port reappears, the window closes, or ctx is cancelled. The exact
// port name is preferred for the whole window; only once the window elapses
// may the first available port of any name be selected, to keep recording
// live rather than stalling indefinitely. A fallback selection is logged
// loudly because it changes which instrument is being recorded.
func (m *Manager) Reconnect(ctx context.Context, list ListDevicesFunc, lost string) Result {
	deadline := time.Now().Add(m.policy.MaxWait)
	ticker := time.NewTicker(m.policy.PollInterval)
	defer ticker.Stop()

	res := Result{}
	for {
		res.Attempts++
		names := m.available(list)
		for _, name := range names {
			if name == lost {
				m.logger.Info("Reconnected to the lost MIDI port",
					m.logger.Field().String("device", lost),
					m.logger.Field().Int("attempts", res.Attempts))
				res.Device = lost
				return res
			}
		}

		exhausted := res.Attempts >= m.policy.MaxAttempts || !time.Now().Before(deadline)
		if exhausted {
			if m.policy.FallbackToAnyPort && len(names) > 0 {
				m.logger.Warn("Lost MIDI port did not return; falling back to another port",
					m.logger.Field().String("lost", lost),
					m.logger.Field().String("device", names[0]))
				res.Device = names[0]
				res.FellBack = true
				return res
			}
			res.Err = fmt.Errorf("%w: %q not found after %d attempts",
				contracts.ErrReconnectionFailed, lost, res.Attempts)
			return res
		}

		select {
		case <-ctx.Done():
			res.Err = ctx.Err()
			return res
		case <-ticker.C:
		}
	}
}

func (m *Manager) available(list ListDevicesFunc) []string {
	devices, err := list()
	if err != nil {
		m.logger.Debug("Device listing failed during reconnection",
			m.logger.Field().Error("error", err))
		return nil
	}
	names := make([]string, len(devices))
	for i, d := range devices {
		names[i] = d.Name
	}
	return names
}
