package activity

import (
	"sync"
	"time"

	"fleetchat/internal/logging"
)

const DefaultTimeout = 10 * time.Minute

type Signal int

const (
	SignalIdleTimeout Signal = iota
	SignalHiddenTimeout
	SignalUnloading
)

func (s Signal) String() string {
	switch s {
	case SignalIdleTimeout:
		return "idle_timeout"
	case SignalHiddenTimeout:
		return "hidden_timeout"
	case SignalUnloading:
		return "unloading"
	default:
		return "unknown"
	}
}

type Handler interface {
	HandleSignal(Signal)
}

type HandlerFunc func(Signal)

func (f HandlerFunc) HandleSignal(signal Signal) { f(signal) }

// State is the per-process activity record. SimulationStopped only ever
// goes from false to true.
type State struct {
	mu                sync.Mutex
	lastActivityAt    time.Time
	simulationStopped bool
}

type StateSnapshot struct {
	LastActivityAt    time.Time
	SimulationStopped bool
}

func NewState(now time.Time) *State {
	return &State{lastActivityAt: now}
}

// MarkStopped sets the stopped flag and reports whether this call was the
// one that set it.
func (s *State) MarkStopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.simulationStopped {
		return false
	}
	s.simulationStopped = true
	return true
}

func (s *State) Stopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.simulationStopped
}

func (s *State) Snapshot() StateSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return StateSnapshot{LastActivityAt: s.lastActivityAt, SimulationStopped: s.simulationStopped}
}

func (s *State) touch(now time.Time) {
	s.mu.Lock()
	s.lastActivityAt = now
	s.mu.Unlock()
}

type Options struct {
	Clock   Clock
	Timeout time.Duration
	State   *State
	Handler Handler
	Logger  logging.Logger
}

// Monitor owns the idle and hidden timers for one view. Each timer firing
// is checked against the arm generation so a timer stopped too late cannot
// act on a newer state.
type Monitor struct {
	clock   Clock
	timeout time.Duration
	state   *State
	handler Handler
	logger  logging.Logger

	mu        sync.Mutex
	idle      Timer
	idleGen   uint64
	hidden    Timer
	hiddenGen uint64
	visible   bool
	closed    bool
}

func NewMonitor(opts Options) *Monitor {
	clock := opts.Clock
	if clock == nil {
		clock = RealClock()
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	state := opts.State
	if state == nil {
		state = NewState(clock.Now())
	}
	handler := opts.Handler
	if handler == nil {
		handler = HandlerFunc(func(Signal) {})
	}
	m := &Monitor{
		clock:   clock,
		timeout: timeout,
		state:   state,
		handler: handler,
		logger:  logging.Component(opts.Logger, "activity"),
		visible: true,
	}
	m.mu.Lock()
	m.armIdleLocked()
	m.mu.Unlock()
	return m
}

func (m *Monitor) State() *State {
	return m.state
}

// Touch records qualifying user input and restarts the idle timer.
func (m *Monitor) Touch() {
	m.state.touch(m.clock.Now())
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed || m.state.Stopped() {
		return
	}
	m.armIdleLocked()
}

// SetVisible starts the hidden timer when the view loses visibility and
// cancels it, refreshing the idle timer, when visibility returns.
func (m *Monitor) SetVisible(visible bool) {
	m.mu.Lock()
	if m.closed || m.visible == visible {
		m.visible = visible
		m.mu.Unlock()
		return
	}
	m.visible = visible
	if !visible {
		if !m.state.Stopped() {
			m.armHiddenLocked()
		}
		m.mu.Unlock()
		m.logger.Debug("view_hidden")
		return
	}
	m.stopHiddenLocked()
	m.mu.Unlock()
	m.logger.Debug("view_visible")
	m.Touch()
}

func (m *Monitor) Visible() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.visible
}

// Unload clears both timers and emits SignalUnloading once.
func (m *Monitor) Unload() {
	if !m.shutdown() {
		return
	}
	m.handler.HandleSignal(SignalUnloading)
}

// Close clears both timers without emitting anything.
func (m *Monitor) Close() {
	m.shutdown()
}

func (m *Monitor) shutdown() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return false
	}
	m.closed = true
	m.stopIdleLocked()
	m.stopHiddenLocked()
	return true
}

func (m *Monitor) armIdleLocked() {
	m.stopIdleLocked()
	gen := m.idleGen
	m.idle = m.clock.AfterFunc(m.timeout, func() { m.fire(SignalIdleTimeout, gen) })
}

func (m *Monitor) stopIdleLocked() {
	m.idleGen++
	if m.idle != nil {
		m.idle.Stop()
		m.idle = nil
	}
}

func (m *Monitor) armHiddenLocked() {
	m.stopHiddenLocked()
	gen := m.hiddenGen
	m.hidden = m.clock.AfterFunc(m.timeout, func() { m.fire(SignalHiddenTimeout, gen) })
}

func (m *Monitor) stopHiddenLocked() {
	m.hiddenGen++
	if m.hidden != nil {
		m.hidden.Stop()
		m.hidden = nil
	}
}

func (m *Monitor) fire(signal Signal, gen uint64) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	switch signal {
	case SignalIdleTimeout:
		if gen != m.idleGen {
			m.mu.Unlock()
			return
		}
	case SignalHiddenTimeout:
		if gen != m.hiddenGen {
			m.mu.Unlock()
			return
		}
	}
	// Either timeout ends the simulation, so neither timer is needed again.
	m.stopIdleLocked()
	m.stopHiddenLocked()
	m.mu.Unlock()
	m.logger.Info("activity_timeout", logging.F("signal", signal.String()), logging.F("timeout", m.timeout.String()))
	m.handler.HandleSignal(signal)
}
