package source

import (
	"sync"
	"time"

	"github.com/leandrodaf/midirec/internal/source/backend"
	"github.com/leandrodaf/midirec/sdk/contracts"
)

// monitored wraps a platform backend with port-liveness supervision: a
// background poller re-lists devices at a fixed interval and emits a
// disconnect notification as soon as the opened port disappears. MIDI drivers
// do not push unplug events portably, so polling is the common denominator.
//
// Each Open starts a fresh watcher and stops any previous one, so the wrapper
// survives Close/Open cycles across monitoring sessions.
type monitored struct {
	backend  backend.Backend
	logger   contracts.Logger
	interval time.Duration

	notifications chan contracts.Notification

	mu     sync.Mutex
	device string
	open   bool
	stop   chan struct{}
}

func newMonitored(b backend.Backend, logger contracts.Logger, interval time.Duration) *monitored {
	return &monitored{
		backend:       b,
		logger:        logger,
		interval:      interval,
		notifications: make(chan contracts.Notification, 4),
	}
}

func (s *monitored) ListDevices() ([]contracts.DeviceInfo, error) {
	return s.backend.ListDevices()
}

func (s *monitored) Open(device string) error {
	resolved, err := s.backend.Open(device)
	if err != nil {
		return err
	}
	s.mu.Lock()
	if s.stop != nil {
		close(s.stop)
	}
	stop := make(chan struct{})
	s.stop = stop
	s.device = resolved
	s.open = true
	s.mu.Unlock()

	s.notify(contracts.Notification{Connected: true, Device: resolved, At: time.Now()})
	go s.watch(stop)
	return nil
}

func (s *monitored) DeviceName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.device
}

func (s *monitored) StartCapture(events chan<- contracts.Event) {
	s.backend.StartCapture(events)
}

func (s *monitored) Notifications() <-chan contracts.Notification {
	return s.notifications
}

// Close stops the watcher and releases the backend binding. The wrapper stays
// usable; a later Open rebinds and restarts supervision.
func (s *monitored) Close() error {
	s.mu.Lock()
	if s.stop != nil {
		close(s.stop)
		s.stop = nil
	}
	s.open = false
	s.device = ""
	s.mu.Unlock()
	return s.backend.Close()
}

// watch polls the device list and reports the opened port vanishing. It exits
// when its stop channel closes, which happens on Close or on the next Open.
func (s *monitored) watch(stop chan struct{}) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.checkLiveness(stop)
		}
	}
}

func (s *monitored) checkLiveness(stop chan struct{}) {
	s.mu.Lock()
	device := s.device
	current := s.stop == stop && s.open
	s.mu.Unlock()
	if !current {
		return
	}

	devices, err := s.backend.ListDevices()
	if err == nil {
		for _, d := range devices {
			if d.Name == device {
				return
			}
		}
	}

	s.mu.Lock()
	// Re-check under the lock; a concurrent Open may have rebound already.
	if s.stop != stop || !s.open || s.device != device {
		s.mu.Unlock()
		return
	}
	s.open = false
	s.mu.Unlock()

	s.logger.Warn("MIDI port disappeared", s.logger.Field().String("device", device))
	s.notify(contracts.Notification{Connected: false, Device: device, At: time.Now()})
}

func (s *monitored) notify(n contracts.Notification) {
	select {
	case s.notifications <- n:
	default:
		s.logger.Warn("Notification channel full; dropping liveness change")
	}
}
