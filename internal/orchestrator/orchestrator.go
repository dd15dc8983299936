package orchestrator

import (
	"context"
	"errors"
	"sync"
	"time"

	"fleetchat/internal/activity"
	"fleetchat/internal/config"
	"fleetchat/internal/conversation"
	"fleetchat/internal/logging"
	"fleetchat/internal/session"
	"fleetchat/internal/simulation"
	"fleetchat/internal/thoughts"
	"fleetchat/internal/types"
)

var (
	ErrNoSession = errors.New("no active session")
	ErrClosed    = errors.New("orchestrator closed")
)

// Backend is everything the orchestrator needs from the remote services.
type Backend interface {
	session.SessionClient
	simulation.Client
	conversation.AgentClient
	DrainBeacons(grace time.Duration) bool
}

type Options struct {
	Config   config.CoreConfig
	Backend  Backend
	Dialer   thoughts.Dialer
	Recorder session.Recorder
	Clock    activity.Clock
	Logger   logging.Logger
}

// Orchestrator wires the session, conversation, thought channel, activity
// monitor and simulation controller together for one process.
type Orchestrator struct {
	cfg     config.CoreConfig
	backend Backend
	dialer  thoughts.Dialer
	clock   activity.Clock
	logger  logging.Logger

	sessions   *session.Store
	state      *activity.State
	simulation *simulation.Controller
	notices    chan simulation.Notice

	mu           sync.Mutex
	monitor      *activity.Monitor
	conversation *conversation.Store
	coordinator  *conversation.Coordinator
	view         *View
	closed       bool
}

func New(opts Options) *Orchestrator {
	clock := opts.Clock
	if clock == nil {
		clock = activity.RealClock()
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	o := &Orchestrator{
		cfg:     opts.Config,
		backend: opts.Backend,
		dialer:  opts.Dialer,
		clock:   clock,
		logger:  logging.Component(logger, "orchestrator"),
		state:   activity.NewState(clock.Now()),
		notices: make(chan simulation.Notice, 1),
	}
	o.simulation = simulation.NewController(simulation.Options{
		Client:            opts.Backend,
		State:             o.state,
		DefaultFleetTotal: opts.Config.DefaultFleetTotal(),
		Logger:            logger,
		OnNotice:          o.publishNotice,
	})
	o.sessions = session.NewStore(session.Options{
		Client:    opts.Backend,
		Announcer: o,
		Recorder:  opts.Recorder,
		Logger:    logger,
		Now:       clock.Now,
	})
	return o
}

func (o *Orchestrator) Sessions() *session.Store {
	return o.sessions
}

func (o *Orchestrator) Simulation() *simulation.Controller {
	return o.simulation
}

// Activity returns the per-process activity record.
func (o *Orchestrator) Activity() activity.StateSnapshot {
	return o.state.Snapshot()
}

// Notices delivers the inactivity or manual-stop notice once raised.
func (o *Orchestrator) Notices() <-chan simulation.Notice {
	return o.notices
}

// Announce is called by the session store when a session goes live. It
// starts the activity timers and announces the session to the simulator.
func (o *Orchestrator) Announce(ctx context.Context, live types.Session) {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	if o.monitor == nil {
		o.monitor = activity.NewMonitor(activity.Options{
			Clock:   o.clock,
			Timeout: o.cfg.IdleTimeout(),
			State:   o.state,
			Handler: o.simulation,
			Logger:  o.logger,
		})
	}
	if o.conversation == nil {
		o.conversation = conversation.NewStore(conversation.Options{
			Greeting: o.cfg.Greeting(),
			Logger:   o.logger,
		})
		o.coordinator = conversation.NewCoordinator(o.conversation, o.backend, o.logger)
	}
	o.mu.Unlock()
	o.simulation.Announce(ctx, live)
}

// Touch records user input.
func (o *Orchestrator) Touch() {
	if monitor := o.currentMonitor(); monitor != nil {
		monitor.Touch()
	}
}

func (o *Orchestrator) SetVisible(visible bool) {
	if monitor := o.currentMonitor(); monitor != nil {
		monitor.SetVisible(visible)
	}
}

func (o *Orchestrator) Conversation() *conversation.Store {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.conversation
}

// Ask runs one diagnostic turn for the live session, blocking until the
// turn is resolved.
func (o *Orchestrator) Ask(ctx context.Context, query string) (types.Turn, error) {
	snapshot := o.sessions.Snapshot()
	if !snapshot.Status.Live() {
		return types.Turn{}, ErrNoSession
	}
	o.mu.Lock()
	coordinator := o.coordinator
	closed := o.closed
	o.mu.Unlock()
	if closed {
		return types.Turn{}, ErrClosed
	}
	if coordinator == nil {
		return types.Turn{}, ErrNoSession
	}
	o.Touch()
	return coordinator.Ask(ctx, conversation.Request{
		Query:       query,
		SessionID:   snapshot.ID,
		Filters:     o.sessions.Filters().Values(),
		Preferences: o.cfg.Preferences(),
	})
}

// ManualStop stops the simulation on the user's behalf.
func (o *Orchestrator) ManualStop(ctx context.Context) {
	o.simulation.ManualStop(ctx)
}

// Close emits the unload signal, tears down the live view and waits up to
// the unload grace period for the beacon to go out.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.closed = true
	monitor := o.monitor
	view := o.view
	o.mu.Unlock()

	if monitor != nil {
		monitor.Unload()
	}
	if view != nil {
		view.close()
	}
	o.mu.Lock()
	o.view = nil
	o.mu.Unlock()
	if o.backend != nil {
		grace := o.cfg.UnloadGrace()
		if !o.backend.DrainBeacons(grace) {
			o.logger.Warn("unload_beacon_pending", logging.F("grace", grace.String()))
		}
	}
	o.logger.Info("orchestrator_closed")
}

func (o *Orchestrator) currentMonitor() *activity.Monitor {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.monitor
}

func (o *Orchestrator) publishNotice(notice simulation.Notice) {
	select {
	case o.notices <- notice:
	default:
	}
}
