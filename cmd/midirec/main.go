package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/leandrodaf/midirec/internal/logger"
	"github.com/leandrodaf/midirec/sdk/contracts"
	"github.com/leandrodaf/midirec/sdk/monitor"
)

func main() {
	showPorts := flag.Bool("list-ports", false, "list available MIDI input ports without recording")
	devices := flag.String("devices", "", "comma-separated ordered list of preferred MIDI input port names; empty picks the first available")
	timeout := flag.Duration("timeout", 5*time.Minute, "MIDI inactivity duration that triggers an auto-save")
	output := flag.String("output", "./recordings", "directory for auto-saved recordings")
	manualDir := flag.String("manual-dir", "./manual_saves", "directory for manual saves")
	reconnectWait := flag.Duration("reconnect-wait", 30*time.Second, "total window to wait for a lost port to return")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	log := logger.NewZapLogger()
	level := contracts.InfoLevel
	if *debug {
		level = contracts.DebugLevel
	}

	var preferred []string
	for _, name := range strings.Split(*devices, ",") {
		if name = strings.TrimSpace(name); name != "" {
			preferred = append(preferred, name)
		}
	}

	mon, err := monitor.NewRecordingMonitor(
		contracts.WithLogger(log),
		contracts.WithLogLevel(level),
		contracts.WithPreferredDevices(preferred...),
		contracts.WithQuietPeriod(*timeout),
		contracts.WithOutputDir(*output),
		contracts.WithManualSaveDir(*manualDir),
		contracts.WithReconnectPolicy(contracts.ReconnectPolicy{
			PollInterval:      time.Second,
			MaxWait:           *reconnectWait,
			FallbackToAnyPort: true,
		}),
	)
	if err != nil {
		log.Error("Failed to initialize recording monitor", log.Field().Error("error", err))
		os.Exit(1)
	}

	if *showPorts {
		ports, err := mon.ListDevices()
		if err != nil {
			log.Error("Failed to list MIDI ports", log.Field().Error("error", err))
			os.Exit(1)
		}
		for i, p := range ports {
			fmt.Printf("%d | %s\n", i, p.Name)
		}
		return
	}

	if err := mon.StartMonitoring(); err != nil {
		log.Error("Failed to start monitoring", log.Field().Error("error", err))
		os.Exit(1)
	}

	st := mon.Status()
	fmt.Printf("Recording from %q; auto-save after %s of silence. Press Ctrl+C to stop.\n",
		st.Device, timeout.String())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	if err := mon.StopMonitoring(); err != nil {
		log.Error("Stop failed; unsaved events may remain buffered",
			log.Field().Error("error", err))
		os.Exit(1)
	}
	if last := mon.Status().LastSavedPath; last != "" {
		fmt.Println("Last recording:", last)
	}
}
