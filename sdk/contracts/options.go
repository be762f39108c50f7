package contracts

import "time"

// ReconnectPolicy bounds the reconnection window after device loss.
type ReconnectPolicy struct {
	PollInterval      time.Duration // PollInterval between device availability checks.
	MaxWait           time.Duration // MaxWait caps the total reconnection window.
	MaxAttempts       int           // MaxAttempts caps the number of polls.
	FallbackToAnyPort bool          // FallbackToAnyPort selects any port once MaxWait elapses.
}

// MonitorOptions defines the configuration for the recording monitor. All
// values are plain inputs; loading them from a config file is the caller's
// concern.
type MonitorOptions struct {
	Logger           Logger           // Logger for logging events and errors.
	LogLevel         LogLevel         // Level of logging to use.
	PreferredDevices []string         // Ordered device names to try at start; empty means first available.
	QuietPeriod      time.Duration    // MIDI inactivity duration that triggers an auto-save.
	OutputDir        string           // Directory for auto-saved recordings.
	ManualSaveDir    string           // Directory for manual saves; defaults to OutputDir.
	Reconnect        ReconnectPolicy  // Reconnection bounds after device loss.
	MIDIEventFilter  *MIDIEventFilter // Optional filter for event kinds to capture.
	Source           Source           // Source overrides the platform event source.
	Sink             Sink             // Sink overrides the standard MIDI file writer.
}

// Option is a function that modifies MonitorOptions.
type Option func(*MonitorOptions)

// WithLogger sets the logger for the monitor.
func WithLogger(l Logger) Option {
	return func(opts *MonitorOptions) {
		opts.Logger = l
	}
}

// WithLogLevel sets the logging level for the monitor.
func WithLogLevel(level LogLevel) Option {
	return func(opts *MonitorOptions) {
		opts.LogLevel = level
	}
}

// WithPreferredDevices sets the ordered list of input device names to try.
func WithPreferredDevices(names ...string) Option {
	return func(opts *MonitorOptions) {
		opts.PreferredDevices = names
	}
}

// WithQuietPeriod sets the inactivity duration that triggers an auto-save.
func WithQuietPeriod(d time.Duration) Option {
	return func(opts *MonitorOptions) {
		opts.QuietPeriod = d
	}
}

// WithOutputDir sets the directory for auto-saved recordings.
func WithOutputDir(dir string) Option {
	return func(opts *MonitorOptions) {
		opts.OutputDir = dir
	}
}

// WithManualSaveDir sets the directory for manual saves.
func WithManualSaveDir(dir string) Option {
	return func(opts *MonitorOptions) {
		opts.ManualSaveDir = dir
	}
}

// WithReconnectPolicy sets the reconnection bounds after device loss.
func WithReconnectPolicy(p ReconnectPolicy) Option {
	return func(opts *MonitorOptions) {
		opts.Reconnect = p
	}
}

// WithMIDIEventFilter sets the MIDI event filter for capture.
func WithMIDIEventFilter(filter MIDIEventFilter) Option {
	return func(opts *MonitorOptions) {
		opts.MIDIEventFilter = &filter
	}
}

// WithSource overrides the platform event source.
func WithSource(s Source) Option {
	return func(opts *MonitorOptions) {
		opts.Source = s
	}
}

// WithSink overrides the standard MIDI file writer.
func WithSink(s Sink) Option {
	return func(opts *MonitorOptions) {
		opts.Sink = s
	}
}
