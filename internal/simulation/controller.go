package simulation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"fleetchat/internal/activity"
	"fleetchat/internal/client"
	"fleetchat/internal/logging"
	"fleetchat/internal/types"
)

const (
	DefaultFleetTotal = 50
	signalTimeout     = 10 * time.Second
)

type Client interface {
	StartSimulation(ctx context.Context, numCars int) error
	BootstrapSimulationSession(ctx context.Context, sessionID string, fleet types.FleetConfig) error
	ReduceUsers(ctx context.Context) (int, error)
	BeaconReduceUsers()
}

type Notice int

const (
	NoticeNone Notice = iota
	NoticeInactivity
	NoticeManualStop
)

func (n Notice) String() string {
	switch n {
	case NoticeInactivity:
		return "inactivity"
	case NoticeManualStop:
		return "manual_stop"
	default:
		return "none"
	}
}

type Options struct {
	Client            Client
	State             *activity.State
	DefaultFleetTotal int
	Logger            logging.Logger
	// OnNotice is called once when a user-facing notice is raised.
	OnNotice func(Notice)
}

// Controller keeps the backend simulation running only while the user is
// around. Stopping is terminal for the life of the process.
type Controller struct {
	client     Client
	state      *activity.State
	fleetTotal int
	logger     logging.Logger
	onNotice   func(Notice)

	mu     sync.Mutex
	notice Notice
}

func NewController(opts Options) *Controller {
	total := opts.DefaultFleetTotal
	if total <= 0 {
		total = DefaultFleetTotal
	}
	state := opts.State
	if state == nil {
		state = activity.NewState(time.Now())
	}
	onNotice := opts.OnNotice
	if onNotice == nil {
		onNotice = func(Notice) {}
	}
	return &Controller{
		client:     opts.Client,
		state:      state,
		fleetTotal: total,
		logger:     logging.Component(opts.Logger, "simulation"),
		onNotice:   onNotice,
	}
}

// Announce starts the simulation and registers the session's fleet with it.
// Both calls run concurrently; failures are logged and otherwise ignored.
func (c *Controller) Announce(ctx context.Context, session types.Session) {
	if c.state.Stopped() {
		c.logger.Info("simulation_announce_skipped", logging.F("session_id", session.ID))
		return
	}
	var g errgroup.Group
	g.Go(func() error {
		err := c.client.StartSimulation(ctx, c.fleetTotal)
		switch {
		case err == nil:
			c.logger.Info("simulation_started", logging.F("num_cars", c.fleetTotal))
		case client.IsAlreadyInState(err):
			c.logger.Debug("simulation_already_running")
		default:
			c.logger.Warn("simulation_start_failed", logging.F("num_cars", c.fleetTotal), logging.Err(err))
			return fmt.Errorf("start simulation: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := c.client.BootstrapSimulationSession(ctx, session.ID, session.Fleet); err != nil {
			c.logger.Warn("simulation_session_bootstrap_failed", logging.F("session_id", session.ID), logging.Err(err))
			return fmt.Errorf("bootstrap simulation session: %w", err)
		}
		c.logger.Info("simulation_session_bootstrapped", logging.F("session_id", session.ID))
		return nil
	})
	if err := g.Wait(); err != nil {
		c.logger.Warn("simulation_announce_incomplete", logging.F("session_id", session.ID), logging.Err(err))
	}
}

// HandleSignal reacts to activity signals. Timeouts stop the simulation
// with a normal request; unloading uses a beacon.
func (c *Controller) HandleSignal(signal activity.Signal) {
	switch signal {
	case activity.SignalIdleTimeout, activity.SignalHiddenTimeout:
		if !c.state.MarkStopped() {
			return
		}
		c.logger.Info("simulation_stopping", logging.F("reason", signal.String()))
		c.setNotice(NoticeInactivity)
		ctx, cancel := context.WithTimeout(context.Background(), signalTimeout)
		defer cancel()
		c.reduce(ctx)
	case activity.SignalUnloading:
		if !c.state.MarkStopped() {
			return
		}
		c.logger.Info("simulation_unload_beacon")
		c.client.BeaconReduceUsers()
	}
}

// ManualStop stops the simulation at the user's request. Inactivity notices
// are suppressed afterwards.
func (c *Controller) ManualStop(ctx context.Context) {
	if !c.state.MarkStopped() {
		return
	}
	c.logger.Info("simulation_stopping", logging.F("reason", "manual"))
	c.setNotice(NoticeManualStop)
	c.reduce(ctx)
}

func (c *Controller) Notice() Notice {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.notice
}

func (c *Controller) Stopped() bool {
	return c.state.Stopped()
}

func (c *Controller) setNotice(notice Notice) {
	c.mu.Lock()
	if c.notice != NoticeNone {
		c.mu.Unlock()
		return
	}
	c.notice = notice
	c.mu.Unlock()
	c.onNotice(notice)
}

func (c *Controller) reduce(ctx context.Context) {
	active, err := c.client.ReduceUsers(ctx)
	switch {
	case err == nil:
		c.logger.Info("simulation_users_reduced", logging.F("active_users", active))
	case client.IsAlreadyInState(err):
		c.logger.Debug("simulation_already_stopped")
	default:
		c.logger.Warn("simulation_reduce_failed", logging.Err(err))
	}
}
