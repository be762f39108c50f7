package source

import (
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/leandrodaf/midirec/internal/source/backend"
	"github.com/leandrodaf/midirec/internal/source/sourcedarwin"
	"github.com/leandrodaf/midirec/internal/source/sourcertmidi"
	"github.com/leandrodaf/midirec/internal/source/sourcewindows"
	"github.com/leandrodaf/midirec/sdk/contracts"
)

// ErrUnsupportedOS is returned when the operating system has no MIDI backend.
var ErrUnsupportedOS = errors.New("unsupported operating system")

// defaultLivenessInterval is how often the opened port is checked for
// presence; a disconnect is observable within one cycle.
const defaultLivenessInterval = time.Second

// Config assembles a platform event source.
type Config struct {
	Logger           contracts.Logger
	Filter           *contracts.MIDIEventFilter
	LivenessInterval time.Duration
}

// backendInitializers maps OS names to corresponding backend constructors.
var backendInitializers = map[string]func(backend.Config) (backend.Backend, error){
	"darwin":  sourcedarwin.NewBackend,  // macOS CoreMIDI backend.
	"windows": sourcewindows.NewBackend, // Windows winmm backend.
	"linux":   sourcertmidi.NewBackend,  // Linux rtmidi backend.
}

// New initializes the event source for the current operating system and wraps
// it with port-liveness supervision. Returns ErrUnsupportedOS when no backend
// exists for the platform.
func New(cfg Config) (contracts.Source, error) {
	initializer, exists := backendInitializers[runtime.GOOS]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedOS, runtime.GOOS)
	}
	b, err := initializer(backend.Config{Logger: cfg.Logger, Filter: cfg.Filter})
	if err != nil {
		return nil, err
	}
	interval := cfg.LivenessInterval
	if interval <= 0 {
		interval = defaultLivenessInterval
	}
	return newMonitored(b, cfg.Logger, interval), nil
}
