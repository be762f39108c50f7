package sink

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/leandrodaf/midirec/sdk/contracts"
)

const (
	tempoBPM   = 120
	ticksPerQN = 96
)

// SMFSink writes captured events as a single-track standard MIDI file. Writes
// go to a temporary file in the target directory first and are renamed into
// place, so a partially written file is never visible under its final name;
// retrying a failed write is therefore safe.
type SMFSink struct {
	logger contracts.Logger
	ticks  smf.MetricTicks
}

// NewSMFSink returns a sink encoding at 120 BPM with 96 ticks per quarter
// note.
func NewSMFSink(logger contracts.Logger) *SMFSink {
	return &SMFSink{
		logger: logger,
		ticks:  smf.MetricTicks(ticksPerQN),
	}
}

// Write persists the ordered events to path. The target directory is created
// when missing. An empty sequence is rejected: no empty files are ever
// written.
func (s *SMFSink) Write(events []contracts.Event, path string) error {
	if len(events) == 0 {
		return fmt.Errorf("refusing to write empty recording to %q", path)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating output directory %q: %w", dir, err)
	}

	var track smf.Track
	track.Add(0, smf.MetaMeter(4, 4))
	track.Add(0, smf.MetaTempo(tempoBPM))
	prev := events[0].Timestamp
	for _, ev := range events {
		delta := s.ticks.Ticks(tempoBPM, ev.Timestamp-prev)
		prev = ev.Timestamp
		track.Add(delta, messageOf(ev))
	}
	track.Close(0)

	file := smf.New()
	file.TimeFormat = s.ticks
	if err := file.Add(track); err != nil {
		return fmt.Errorf("assembling MIDI file: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".midirec-*")
	if err != nil {
		return fmt.Errorf("creating temp file in %q: %w", dir, err)
	}
	tmpName := tmp.Name()
	if _, err := file.WriteTo(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("encoding MIDI file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("moving recording into place: %w", err)
	}

	s.logger.Info("Recording written",
		s.logger.Field().String("path", path),
		s.logger.Field().Int("events", len(events)))
	return nil
}

// messageOf converts a captured event back to a wire MIDI message.
func messageOf(ev contracts.Event) midi.Message {
	switch ev.Kind {
	case contracts.NoteOn:
		return midi.NoteOn(ev.Channel, ev.Data1, ev.Data2)
	case contracts.NoteOff:
		return midi.NoteOff(ev.Channel, ev.Data1)
	case contracts.ControlChange:
		return midi.ControlChange(ev.Channel, ev.Data1, ev.Data2)
	default:
		return midi.Message(ev.Raw)
	}
}

// LatestRecording returns the path of the newest .mid file in dir, relying on
// the sortable timestamp naming scheme. Returns "" when the directory holds
// no recordings.
func LatestRecording(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("listing recordings in %q: %w", dir, err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".mid") {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return "", nil
	}
	sort.Strings(names)
	return filepath.Join(dir, names[len(names)-1]), nil
}
