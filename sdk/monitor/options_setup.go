package monitor

import (
	"time"

	"github.com/leandrodaf/midirec/internal/logger"
	"github.com/leandrodaf/midirec/internal/sink"
	"github.com/leandrodaf/midirec/internal/source"
	"github.com/leandrodaf/midirec/sdk/contracts"
)

// Defaults: five minutes of quiet before an auto-save, recordings next to the
// working directory, a 30-second reconnection window polled once a second.
const (
	defaultQuietPeriod   = 5 * time.Minute
	defaultOutputDir     = "./recordings"
	defaultManualSaveDir = "./manual_saves"
)

// applyDefaultOptions sets default values for MonitorOptions if not
// explicitly provided.
func applyDefaultOptions(opts ...contracts.Option) (contracts.MonitorOptions, error) {
	options := &contracts.MonitorOptions{}
	for _, opt := range opts {
		opt(options)
	}

	if options.Logger == nil {
		options.Logger = logger.NewZapLogger()
	}
	if options.LogLevel == 0 {
		options.LogLevel = contracts.InfoLevel
	}
	options.Logger.SetLevel(options.LogLevel)

	if options.QuietPeriod <= 0 {
		options.QuietPeriod = defaultQuietPeriod
	}
	if options.OutputDir == "" {
		options.OutputDir = defaultOutputDir
	}
	if options.ManualSaveDir == "" {
		options.ManualSaveDir = defaultManualSaveDir
	}

	if options.Reconnect.PollInterval <= 0 {
		options.Reconnect.PollInterval = time.Second
	}
	if options.Reconnect.MaxWait <= 0 {
		options.Reconnect.MaxWait = 30 * time.Second
		options.Reconnect.FallbackToAnyPort = true
	}

	if options.Sink == nil {
		options.Sink = sink.NewSMFSink(options.Logger)
	}
	if options.Source == nil {
		src, err := source.New(source.Config{
			Logger: options.Logger,
			Filter: options.MIDIEventFilter,
		})
		if err != nil {
			return contracts.MonitorOptions{}, err
		}
		options.Source = src
	}

	return *options, nil
}
