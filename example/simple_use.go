package main

import (
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/leandrodaf/midirec/internal/logger"
	"github.com/leandrodaf/midirec/sdk/contracts"
	"github.com/leandrodaf/midirec/sdk/monitor"
)

func main() {
	log := logger.NewZapLogger()

	mon, err := monitor.NewRecordingMonitor(
		contracts.WithLogger(log),
		contracts.WithLogLevel(contracts.InfoLevel),
		contracts.WithQuietPeriod(30*time.Second),
		contracts.WithOutputDir("./recordings"),
		contracts.WithMIDIEventFilter(contracts.MIDIEventFilter{
			Kinds: []contracts.EventKind{contracts.NoteOn, contracts.NoteOff},
		}),
	)
	if err != nil {
		log.Error("Failed to initialize recording monitor", log.Field().Error("error", err))
		return
	}

	devices, err := mon.ListDevices()
	if err != nil || len(devices) == 0 {
		log.Error("No MIDI devices found or error listing devices", log.Field().Error("error", err))
		return
	}
	fmt.Println("Available MIDI devices:", devices)

	if err := mon.StartMonitoring(); err != nil {
		log.Error("Failed to start monitoring", log.Field().Error("error", err))
		return
	}

	fmt.Println("Recording MIDI input... Press Ctrl+C to stop.")
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	<-sigCh

	if path, err := mon.ManualSave(); err == nil {
		fmt.Println("Manual save:", path)
	}
	if err := mon.StopMonitoring(); err != nil {
		log.Error("Failed to stop monitoring", log.Field().Error("error", err))
	}
}
