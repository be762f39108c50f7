package monitor

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/leandrodaf/midirec/internal/buffer"
	"github.com/leandrodaf/midirec/internal/reconnect"
	"github.com/leandrodaf/midirec/internal/sink"
	"github.com/leandrodaf/midirec/internal/timer"
	"github.com/leandrodaf/midirec/sdk/contracts"
)

type sessionState int

const (
	stateIdle sessionState = iota
	stateMonitoring
	stateStopping
	stateStopped
)

type commandKind int

const (
	cmdManualSave commandKind = iota
	cmdStop
	cmdRetryReconnect
)

type command struct {
	kind  commandKind
	reply chan commandResult
}

type commandResult struct {
	path string
	err  error
}

// session aggregates one event buffer, device binding and timer between
// StartMonitoring and StopMonitoring. Exactly one session is live at a time.
type session struct {
	buf      *buffer.EventBuffer
	timer    *timer.AutoSaveTimer
	events   chan contracts.Event
	commands chan command
	reconRes chan reconnect.Result
	cancel   context.CancelFunc
	done     chan struct{}
	device   string
}

// Monitor wires an event source, an event buffer, an auto-save timer and a
// file sink into the recording monitor. All shared state is touched either
// under short-held locks or from the single control-loop goroutine; the file
// sink is never invoked while a lock is held.
type Monitor struct {
	opts   contracts.MonitorOptions
	logger contracts.Logger
	source contracts.Source
	sink   contracts.Sink
	recon  *reconnect.Manager

	mu      sync.Mutex // guards state and session lifecycle
	state   sessionState
	session *session

	statusMu sync.Mutex
	status   contracts.Status
}

// New assembles a monitor from fully populated options. Defaults are applied
// by the sdk/monitor factory.
func New(opts contracts.MonitorOptions) *Monitor {
	m := &Monitor{
		opts:   opts,
		logger: opts.Logger,
		source: opts.Source,
		sink:   opts.Sink,
		recon:  reconnect.NewManager(opts.Reconnect, opts.Logger),
	}
	m.status = contracts.Status{State: contracts.Disconnected}
	return m
}

// StartMonitoring opens the input device, creates a fresh session, arms the
// auto-save timer and launches the control loop.
func (m *Monitor) StartMonitoring() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == stateMonitoring || m.state == stateStopping {
		return contracts.ErrAlreadyMonitoring
	}

	device, err := m.openPreferred()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &session{
		buf:      buffer.New(),
		timer:    timer.New(m.opts.QuietPeriod),
		events:   make(chan contracts.Event, 256),
		commands: make(chan command),
		reconRes: make(chan reconnect.Result, 1),
		cancel:   cancel,
		done:     make(chan struct{}),
		device:   device,
	}
	s.buf.SetActive(true)
	m.source.StartCapture(s.events)
	s.timer.Start()

	m.session = s
	m.state = stateMonitoring
	m.patchStatus(func(st *contracts.Status) {
		st.State = contracts.Connected
		st.Device = device
		st.FellBackToPort = false
		st.LastError = ""
	})

	go m.run(ctx, s)

	m.logger.Info("Monitoring started",
		m.logger.Field().String("device", device),
		m.logger.Field().Int64("quiet_period_ms", m.opts.QuietPeriod.Milliseconds()))
	return nil
}

// StopMonitoring cancels the timer, flushes remaining buffered events, closes
// the input device and terminates the session. Safe to call while an
// auto-save is in flight; the stop merges behind it on the control loop.
func (m *Monitor) StopMonitoring() error {
	m.mu.Lock()
	if m.state != stateMonitoring {
		m.mu.Unlock()
		return contracts.ErrNotMonitoring
	}
	s := m.session
	m.state = stateStopping
	m.mu.Unlock()

	res := m.dispatch(s, cmdStop)
	<-s.done

	m.mu.Lock()
	m.state = stateStopped
	if res.err == nil {
		// On a failed final flush the session is kept so the retained buffer
		// stays inspectable; the next start replaces it.
		m.session = nil
	}
	m.mu.Unlock()

	m.patchStatus(func(st *contracts.Status) {
		st.State = contracts.Disconnected
	})
	m.logger.Info("Monitoring stopped")
	return res.err
}

// ManualSave flushes buffered events to the manual-save directory, or
// re-exports the last saved file when the buffer is empty.
func (m *Monitor) ManualSave() (string, error) {
	s, err := m.liveSession()
	if err != nil {
		return "", err
	}
	res := m.dispatch(s, cmdManualSave)
	return res.path, res.err
}

// RetryReconnect forces a new bounded reconnection window after a failure.
func (m *Monitor) RetryReconnect() error {
	s, err := m.liveSession()
	if err != nil {
		return err
	}
	return m.dispatch(s, cmdRetryReconnect).err
}

// Status returns a point-in-time snapshot without blocking event delivery.
func (m *Monitor) Status() contracts.Status {
	m.statusMu.Lock()
	st := m.status
	m.statusMu.Unlock()

	m.mu.Lock()
	st.IsRecording = m.state == stateMonitoring
	s := m.session
	m.mu.Unlock()

	if s != nil {
		st.BufferedEvents = s.buf.Len()
		st.HasBufferedEvents = st.BufferedEvents > 0
	}
	return st
}

// BufferedEventCount returns the number of unflushed events.
func (m *Monitor) BufferedEventCount() int {
	m.mu.Lock()
	s := m.session
	m.mu.Unlock()
	if s == nil {
		return 0
	}
	return s.buf.Len()
}

// ClearBuffer discards all unflushed events on explicit operator request.
func (m *Monitor) ClearBuffer() {
	m.mu.Lock()
	s := m.session
	m.mu.Unlock()
	if s == nil {
		return
	}
	dropped := s.buf.Drain()
	if len(dropped) > 0 {
		m.logger.Warn("Buffer cleared on request",
			m.logger.Field().Int("dropped_events", len(dropped)))
	}
}

// ListDevices lists the available MIDI input devices.
func (m *Monitor) ListDevices() ([]contracts.DeviceInfo, error) {
	return m.source.ListDevices()
}

func (m *Monitor) liveSession() (*session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != stateMonitoring || m.session == nil {
		return nil, contracts.ErrNotMonitoring
	}
	return m.session, nil
}

func (m *Monitor) dispatch(s *session, kind commandKind) commandResult {
	cmd := command{kind: kind, reply: make(chan commandResult, 1)}
	select {
	case s.commands <- cmd:
		return <-cmd.reply
	case <-s.done:
		return commandResult{err: contracts.ErrNotMonitoring}
	}
}

// openPreferred opens the first available device from the configured
// preference list, falling back to the first available port of any name.
func (m *Monitor) openPreferred() (string, error) {
	devices, err := m.source.ListDevices()
	if err != nil || len(devices) == 0 {
		return "", fmt.Errorf("%w: no input ports found", contracts.ErrDeviceUnavailable)
	}
	present := make(map[string]bool, len(devices))
	for _, d := range devices {
		present[d.Name] = true
	}
	for _, name := range m.opts.PreferredDevices {
		if present[name] {
			if err := m.source.Open(name); err == nil {
				return name, nil
			}
		}
	}
	if err := m.source.Open(""); err != nil {
		return "", fmt.Errorf("%w: %v", contracts.ErrDeviceUnavailable, err)
	}
	return m.source.DeviceName(), nil
}

// run is the single control loop. Every mutation of the flush policy state
// happens here, so timer expiries, incoming events, reconnection transitions
// and external commands are linearized without re-entrant callbacks.
func (m *Monitor) run(ctx context.Context, s *session) {
	defer close(s.done)
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-s.events:
			if !m.opts.MIDIEventFilter.Allows(ev.Kind) {
				continue
			}
			s.buf.Append(ev, time.Now())
			s.timer.Reset()
		case exp := <-s.timer.Expiries():
			m.handleExpiry(s, exp)
		case n := <-m.source.Notifications():
			m.handleNotification(ctx, s, n)
		case res := <-s.reconRes:
			m.handleReconnectResult(s, res)
		case cmd := <-s.commands:
			switch cmd.kind {
			case cmdManualSave:
				path, err := m.manualSave(s)
				cmd.reply <- commandResult{path: path, err: err}
			case cmdRetryReconnect:
				cmd.reply <- commandResult{err: m.retryReconnect(ctx, s)}
			case cmdStop:
				s.cancel()
				cmd.reply <- commandResult{err: m.shutdown(s)}
				return
			}
		}
	}
}

// handleExpiry performs an auto-save when the quiet period genuinely elapsed.
// A stale generation means a reset raced the firing; an advanced
// last-event time means an event arrived after the deadline was armed, so the
// flush is deferred by re-arming rather than firing on stale state.
func (m *Monitor) handleExpiry(s *session, exp timer.Expiry) {
	if exp.Gen != s.timer.Current() {
		return
	}
	if s.buf.LastEventTime().After(exp.ArmedAt) {
		s.timer.Reset()
		return
	}
	if !s.buf.HasEvents() {
		m.logger.Debug("Quiet period elapsed with empty buffer; nothing to save")
		return
	}
	path, err := m.flush(s, false)
	if err != nil {
		m.logger.Error("Auto-save failed; events retained in buffer",
			m.logger.Field().Error("error", err))
		return
	}
	m.logger.Info("Auto-save completed", m.logger.Field().String("path", path))
}

// flush drains the buffer and hands the snapshot to the sink outside any
// lock, so new events keep arriving during the write. A failed write is
// retried once immediately; if the retry also fails the snapshot is restored
// to the buffer and nothing is lost.
func (m *Monitor) flush(s *session, manual bool) (string, error) {
	snapshot := s.buf.Drain()
	if len(snapshot) == 0 {
		return "", nil
	}

	dir := m.opts.OutputDir
	if manual {
		dir = m.opts.ManualSaveDir
	}
	path := NextAvailablePath(dir, Filename(manual, time.Now()))

	err := m.sink.Write(snapshot, path)
	if err != nil {
		m.logger.Warn("Write failed; retrying once",
			m.logger.Field().String("path", path),
			m.logger.Field().Error("error", err))
		err = m.sink.Write(snapshot, path)
	}
	if err != nil {
		s.buf.Restore(snapshot)
		werr := fmt.Errorf("%w: %v", contracts.ErrWriteFailed, err)
		m.patchStatus(func(st *contracts.Status) {
			st.LastError = werr.Error()
		})
		return "", werr
	}

	m.patchStatus(func(st *contracts.Status) {
		st.LastSavedPath = path
		st.LastError = ""
	})
	return path, nil
}

// manualSave flushes the buffer to the manual-save directory. An empty buffer
// re-exports the last result: the most recently saved file path is returned,
// a deliberate product decision rather than an error.
func (m *Monitor) manualSave(s *session) (string, error) {
	if s.buf.HasEvents() {
		path, err := m.flush(s, true)
		if err != nil {
			return "", err
		}
		s.timer.Reset()
		m.logger.Info("Manual save completed", m.logger.Field().String("path", path))
		return path, nil
	}

	m.statusMu.Lock()
	last := m.status.LastSavedPath
	m.statusMu.Unlock()
	if last != "" {
		return last, nil
	}
	if latest := m.latestSaved(); latest != "" {
		m.patchStatus(func(st *contracts.Status) {
			st.LastSavedPath = latest
		})
		return latest, nil
	}
	return "", contracts.ErrNothingToSave
}

// latestSaved returns the newest recording from a previous run, checking both
// the auto-save and manual-save directories. Their naming schemes differ, so
// the comparison uses modification times.
func (m *Monitor) latestSaved() string {
	var newest string
	var newestTime time.Time
	for _, dir := range []string{m.opts.OutputDir, m.opts.ManualSaveDir} {
		path, err := sink.LatestRecording(dir)
		if err != nil || path == "" {
			continue
		}
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		if newest == "" || info.ModTime().After(newestTime) {
			newest = path
			newestTime = info.ModTime()
		}
	}
	return newest
}

// handleNotification reacts to device loss reported by the source. Buffered
// events are never discarded on a disconnect.
func (m *Monitor) handleNotification(ctx context.Context, s *session, n contracts.Notification) {
	if n.Connected {
		return
	}
	m.statusMu.Lock()
	current := m.status.State
	m.statusMu.Unlock()
	if current != contracts.Connected {
		return
	}

	m.logger.Warn("MIDI device disconnected; buffered events are retained",
		m.logger.Field().String("device", n.Device),
		m.logger.Field().Int("buffered_events", s.buf.Len()))
	m.patchStatus(func(st *contracts.Status) {
		st.State = contracts.Disconnected
	})
	m.startReconnect(ctx, s)
}

func (m *Monitor) startReconnect(ctx context.Context, s *session) {
	m.patchStatus(func(st *contracts.Status) {
		st.State = contracts.Reconnecting
	})
	lost := s.device
	go func() {
		res := m.recon.Reconnect(ctx, m.source.ListDevices, lost)
		select {
		case s.reconRes <- res:
		case <-ctx.Done():
		}
	}()
}

func (m *Monitor) retryReconnect(ctx context.Context, s *session) error {
	m.statusMu.Lock()
	current := m.status.State
	m.statusMu.Unlock()
	if current != contracts.Failed {
		return contracts.ErrRetryNotApplicable
	}
	m.startReconnect(ctx, s)
	return nil
}

// handleReconnectResult reopens the source in place on success; the session
// and its buffer are unchanged, so accumulation continues into the same
// recording.
func (m *Monitor) handleReconnectResult(s *session, res reconnect.Result) {
	if res.Err != nil {
		m.logger.Error("Reconnection failed; buffered events are retained",
			m.logger.Field().Error("error", res.Err),
			m.logger.Field().Int("attempts", res.Attempts))
		m.patchStatus(func(st *contracts.Status) {
			st.State = contracts.Failed
			st.LastError = res.Err.Error()
		})
		return
	}

	if err := m.source.Open(res.Device); err != nil {
		m.logger.Error("Reopening reconnected port failed",
			m.logger.Field().String("device", res.Device),
			m.logger.Field().Error("error", err))
		m.patchStatus(func(st *contracts.Status) {
			st.State = contracts.Failed
			st.LastError = err.Error()
		})
		return
	}

	s.device = res.Device
	if res.FellBack {
		m.logger.Warn("Recording input switched to a different port",
			m.logger.Field().String("device", res.Device))
	}
	m.patchStatus(func(st *contracts.Status) {
		st.State = contracts.Connected
		st.Device = res.Device
		st.FellBackToPort = res.FellBack
		st.LastError = ""
	})
	if s.buf.HasEvents() {
		// Restart the quiet period so preserved events still reach disk even
		// if no further input arrives.
		s.timer.Reset()
	}
}

// shutdown runs on the control loop for cmdStop: cancel the timer, attempt a
// final flush, release the device. Unsaved data is only ever left behind when
// the sink itself fails, and then it stays in the buffer.
func (m *Monitor) shutdown(s *session) error {
	s.timer.Stop()

	// Pull events that were delivered but not yet consumed, so the final
	// flush covers everything the device sent before the stop.
	for {
		select {
		case ev := <-s.events:
			if m.opts.MIDIEventFilter.Allows(ev.Kind) {
				s.buf.Append(ev, time.Now())
			}
			continue
		default:
		}
		break
	}

	var err error
	if s.buf.HasEvents() {
		var path string
		path, err = m.flush(s, false)
		if err == nil {
			m.logger.Info("Final flush completed", m.logger.Field().String("path", path))
		}
	}

	if cerr := m.source.Close(); cerr != nil {
		m.logger.Error("Closing MIDI source failed", m.logger.Field().Error("error", cerr))
		if err == nil {
			err = cerr
		}
	}
	s.buf.SetActive(false)
	return err
}

func (m *Monitor) patchStatus(patch func(*contracts.Status)) {
	m.statusMu.Lock()
	patch(&m.status)
	m.statusMu.Unlock()
}
