package sink

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/leandrodaf/midirec/internal/logger"
	"github.com/leandrodaf/midirec/sdk/contracts"
)

func TestWriteProducesReadableMIDIFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "20240315090542.mid")

	events := []contracts.Event{
		{Kind: contracts.NoteOn, Channel: 0, Data1: 60, Data2: 100, Timestamp: 0},
		{Kind: contracts.NoteOff, Channel: 0, Data1: 60, Timestamp: 500 * time.Millisecond},
		{Kind: contracts.ControlChange, Channel: 0, Data1: 64, Data2: 127, Timestamp: time.Second},
	}

	s := NewSMFSink(logger.NewNopLogger())
	if err := s.Write(events, path); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	rd, err := smf.ReadFile(path)
	if err != nil {
		t.Fatalf("written file is not a readable MIDI file: %v", err)
	}
	if rd.NumTracks() != 1 {
		t.Fatalf("expected 1 track, got %d", rd.NumTracks())
	}

	var noteOns, noteOffs, controls int
	for _, ev := range rd.Tracks[0] {
		var ch, key, vel, cc, val uint8
		switch {
		case ev.Message.GetNoteStart(&ch, &key, &vel):
			noteOns++
			if key != 60 || vel != 100 {
				t.Errorf("note on: got key=%d vel=%d", key, vel)
			}
		case ev.Message.GetNoteEnd(&ch, &key):
			noteOffs++
		case ev.Message.GetControlChange(&ch, &cc, &val):
			controls++
			if cc != 64 || val != 127 {
				t.Errorf("control change: got cc=%d val=%d", cc, val)
			}
		}
	}
	if noteOns != 1 || noteOffs != 1 || controls != 1 {
		t.Errorf("expected 1 of each message kind, got on=%d off=%d cc=%d",
			noteOns, noteOffs, controls)
	}
}

func TestWritePreservesRelativeTiming(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "timing.mid")

	events := []contracts.Event{
		{Kind: contracts.NoteOn, Channel: 0, Data1: 60, Data2: 100, Timestamp: 2 * time.Second},
		{Kind: contracts.NoteOff, Channel: 0, Data1: 60, Timestamp: 3 * time.Second},
	}

	s := NewSMFSink(logger.NewNopLogger())
	if err := s.Write(events, path); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	rd, err := smf.ReadFile(path)
	if err != nil {
		t.Fatalf("reading back: %v", err)
	}
	clock := rd.TimeFormat.(smf.MetricTicks)

	var ch, key uint8
	for _, ev := range rd.Tracks[0] {
		if ev.Message.GetNoteEnd(&ch, &key) {
			gap := clock.Duration(tempoBPM, ev.Delta)
			if gap < 900*time.Millisecond || gap > 1100*time.Millisecond {
				t.Errorf("expected roughly 1s between note on and note off, got %v", gap)
			}
			return
		}
	}
	t.Fatal("note off not found in written file")
}

func TestWriteRejectsEmptyRecording(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.mid")

	s := NewSMFSink(logger.NewNopLogger())
	if err := s.Write(nil, path); err == nil {
		t.Fatal("expected an error for an empty event sequence")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("no file must be created for an empty recording")
	}
}

func TestWriteCreatesMissingDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "recordings", "nested")
	path := filepath.Join(dir, "20240315090542.mid")

	s := NewSMFSink(logger.NewNopLogger())
	events := []contracts.Event{{Kind: contracts.NoteOn, Data1: 60, Data2: 100}}
	if err := s.Write(events, path); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("recording missing after write: %v", err)
	}
}

func TestWriteLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()

	s := NewSMFSink(logger.NewNopLogger())
	events := []contracts.Event{{Kind: contracts.NoteOn, Data1: 60, Data2: 100}}
	if err := s.Write(events, filepath.Join(dir, "a.mid")); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".midirec-") {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}

func TestWriteRawFallback(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "raw.mid")

	// A pitch bend has no dedicated event kind and travels as raw bytes.
	raw := midi.Pitchbend(0, 2000)
	events := []contracts.Event{
		{Kind: contracts.NoteOn, Data1: 60, Data2: 100},
		{Kind: contracts.Other, Raw: raw.Bytes()},
	}

	s := NewSMFSink(logger.NewNopLogger())
	if err := s.Write(events, path); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if _, err := smf.ReadFile(path); err != nil {
		t.Errorf("file with raw message is not readable: %v", err)
	}
}

func TestLatestRecording(t *testing.T) {
	dir := t.TempDir()

	if got, err := LatestRecording(dir); err != nil || got != "" {
		t.Errorf("empty dir: expected no recording, got %q, err=%v", got, err)
	}

	for _, name := range []string{"20240315090542.mid", "20240315110000.mid", "20240315100000.mid", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	got, err := LatestRecording(dir)
	if err != nil {
		t.Fatal(err)
	}
	if got != filepath.Join(dir, "20240315110000.mid") {
		t.Errorf("expected newest recording, got %q", got)
	}
}

func TestLatestRecordingMissingDirectory(t *testing.T) {
	got, err := LatestRecording(filepath.Join(t.TempDir(), "nope"))
	if err != nil {
		t.Fatalf("missing directory must not be an error, got %v", err)
	}
	if got != "" {
		t.Errorf("expected no recording, got %q", got)
	}
}
