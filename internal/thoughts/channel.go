package thoughts

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"fleetchat/internal/logging"
)

var ErrAlreadyOpen = errors.New("thought channel already opened")

type State int

const (
	StateIdle State = iota
	StateConnecting
	StateConnected
	StateError
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateError:
		return "error"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Terminal reports whether the channel can no longer deliver thoughts.
func (s State) Terminal() bool {
	return s == StateError || s == StateClosed
}

type EventKind int

const (
	EventConnected EventKind = iota
	EventThoughtReceived
	EventError
	EventClosed
)

type Event struct {
	Kind    EventKind
	Thought string
	Err     error
}

type Sink interface {
	HandleChannelEvent(Event)
}

type SinkFunc func(Event)

func (f SinkFunc) HandleChannelEvent(event Event) { f(event) }

type Dialer interface {
	DialThoughts(ctx context.Context, threadID string) (*websocket.Conn, error)
}

type Options struct {
	Dialer      Dialer
	Sink        Sink
	Logger      logging.Logger
	StreamDebug bool
}

const closeWriteTimeout = time.Second

// Channel is a single-use push connection. Once it reaches Error or Closed
// it stays there; a new view opens a new Channel.
type Channel struct {
	dialer      Dialer
	sink        Sink
	logger      logging.Logger
	streamDebug bool

	mu         sync.Mutex
	state      State
	threadID   string
	conn       *websocket.Conn
	cancelDial context.CancelFunc
	closing    bool
	done       chan struct{}
}

func New(opts Options) *Channel {
	sink := opts.Sink
	if sink == nil {
		sink = SinkFunc(func(Event) {})
	}
	return &Channel{
		dialer:      opts.Dialer,
		sink:        sink,
		logger:      logging.Component(opts.Logger, "thoughts"),
		streamDebug: opts.StreamDebug,
		done:        make(chan struct{}),
	}
}

func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Done is closed once the channel reaches a terminal state.
func (c *Channel) Done() <-chan struct{} {
	return c.done
}

// Open dials the push channel for threadID. Dial failures move the channel
// to Error and are reported to the sink as well as returned.
func (c *Channel) Open(ctx context.Context, threadID string) error {
	threadID = strings.TrimSpace(threadID)
	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return ErrAlreadyOpen
	}
	dialCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	c.state = StateConnecting
	c.threadID = threadID
	c.cancelDial = cancel
	c.mu.Unlock()

	if c.dialer == nil {
		err := errors.New("thought dialer is required")
		c.fail(err)
		return err
	}
	conn, err := c.dialer.DialThoughts(dialCtx, threadID)
	if err != nil {
		c.logger.Warn("thought_channel_dial_failed", logging.F("thread_id", threadID), logging.Err(err))
		c.fail(err)
		return err
	}

	c.mu.Lock()
	if c.closing {
		c.mu.Unlock()
		_ = conn.Close()
		c.finish(StateClosed, Event{Kind: EventClosed})
		return nil
	}
	c.conn = conn
	c.state = StateConnected
	c.mu.Unlock()

	c.logger.Info("thought_channel_connected", logging.F("thread_id", threadID))
	c.sink.HandleChannelEvent(Event{Kind: EventConnected})
	go c.readLoop(conn)
	return nil
}

// Close tears the connection down and returns once the channel is terminal.
// An in-flight dial is cancelled. It is safe to call in any state and more
// than once.
func (c *Channel) Close() {
	c.mu.Lock()
	if c.closing || c.state.Terminal() {
		c.mu.Unlock()
		return
	}
	c.closing = true
	state := c.state
	conn := c.conn
	cancelDial := c.cancelDial
	c.mu.Unlock()

	switch state {
	case StateIdle:
		c.finish(StateClosed, Event{Kind: EventClosed})
	case StateConnecting:
		cancelDial()
		<-c.done
	case StateConnected:
		deadline := time.Now().Add(closeWriteTimeout)
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		_ = conn.Close()
		<-c.done
	}
}

func (c *Channel) readLoop(conn *websocket.Conn) {
	for {
		messageType, payload, err := conn.ReadMessage()
		if err != nil {
			c.handleReadError(err)
			return
		}
		if messageType != websocket.TextMessage && messageType != websocket.BinaryMessage {
			continue
		}
		thought := string(payload)
		if c.streamDebug {
			c.logger.Debug("thought_frame", logging.F("thread_id", c.threadID), logging.F("bytes", len(payload)), logging.F("text", thought))
		}
		c.sink.HandleChannelEvent(Event{Kind: EventThoughtReceived, Thought: thought})
	}
}

func (c *Channel) handleReadError(err error) {
	c.mu.Lock()
	closing := c.closing
	c.mu.Unlock()
	if closing || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		c.logger.Info("thought_channel_closed", logging.F("thread_id", c.threadID))
		c.finish(StateClosed, Event{Kind: EventClosed})
		return
	}
	c.logger.Warn("thought_channel_error", logging.F("thread_id", c.threadID), logging.Err(err))
	c.finish(StateError, Event{Kind: EventError, Err: err})
}

func (c *Channel) fail(err error) {
	c.mu.Lock()
	closing := c.closing
	c.mu.Unlock()
	if closing {
		c.finish(StateClosed, Event{Kind: EventClosed})
		return
	}
	c.finish(StateError, Event{Kind: EventError, Err: err})
}

func (c *Channel) finish(state State, event Event) {
	c.mu.Lock()
	if c.state.Terminal() {
		c.mu.Unlock()
		return
	}
	c.state = state
	c.conn = nil
	c.mu.Unlock()
	c.sink.HandleChannelEvent(event)
	close(c.done)
}
