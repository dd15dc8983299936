package conversation

import (
	"errors"
	"strings"
	"sync"

	"fleetchat/internal/logging"
	"fleetchat/internal/thoughts"
	"fleetchat/internal/types"
)

var ErrEmptyQuery = errors.New("query is required")

const (
	DefaultGreeting   = "Hello! I am your AI assistant. How can I help you today?"
	PlaceholderText   = "Thinking..."
	SupersededText    = "A newer question replaced this one before an answer arrived."
	greetingMessageID = types.MessageID(0)
)

type Options struct {
	Greeting string
	Logger   logging.Logger
}

// State is a point-in-time copy of the conversation.
type State struct {
	Messages          []types.Message
	Thinking          bool
	ThinkingMessageID types.MessageID
	ActiveTurn        types.TurnID
	CurrentThought    string
	Channel           thoughts.State
}

// Store is the conversation log for one session. Every mutation is applied
// under one lock and followed by a single change notification.
type Store struct {
	mu       sync.Mutex
	messages []types.Message
	index    map[types.MessageID]int
	lastID   types.MessageID
	lastTurn types.TurnID
	active   *types.Turn
	thought  string
	channel  thoughts.State
	changes  chan struct{}
	logger   logging.Logger
}

func NewStore(opts Options) *Store {
	greeting := strings.TrimSpace(opts.Greeting)
	if greeting == "" {
		greeting = DefaultGreeting
	}
	s := &Store{
		index:   map[types.MessageID]int{},
		changes: make(chan struct{}, 1),
		logger:  logging.Component(opts.Logger, "conversation"),
	}
	s.appendLocked(types.Message{
		ID:        greetingMessageID,
		Sender:    types.SenderBot,
		Text:      greeting,
		Completed: true,
	})
	s.lastID = greetingMessageID
	return s
}

// Changes delivers a coalesced signal after each state update.
func (s *Store) Changes() <-chan struct{} {
	return s.changes
}

// Submit appends the user's message and its bot placeholder in one step and
// makes the placeholder the thinking message. A turn still in flight is
// closed out with SupersededText; its late answer will be discarded.
func (s *Store) Submit(text string) (types.Turn, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return types.Turn{}, ErrEmptyQuery
	}
	s.mu.Lock()
	if s.active != nil {
		prev := *s.active
		s.completeLocked(prev.BotMessageID, SupersededText, nil)
		s.logger.Info("turn_superseded", logging.F("turn_id", prev.ID))
	}
	s.lastTurn++
	turn := types.Turn{
		ID:            s.lastTurn,
		UserMessageID: s.lastID + 1,
		BotMessageID:  s.lastID + 2,
		Query:         text,
	}
	s.lastID += 2
	s.appendLocked(types.Message{ID: turn.UserMessageID, Turn: turn.ID, Sender: types.SenderUser, Text: text, Completed: true})
	s.appendLocked(types.Message{ID: turn.BotMessageID, Turn: turn.ID, Sender: types.SenderBot, Text: PlaceholderText})
	s.active = &turn
	s.thought = ""
	s.mu.Unlock()
	s.notify()
	return turn, nil
}

// ApplyThought records the latest streamed thought for the active turn. It
// reports the turn it was routed to, or false when nothing is thinking.
func (s *Store) ApplyThought(text string) (types.TurnID, bool) {
	s.mu.Lock()
	if s.active == nil {
		s.mu.Unlock()
		return 0, false
	}
	turnID := s.active.ID
	s.thought = text
	s.mu.Unlock()
	s.notify()
	return turnID, true
}

// Resolve fills in the bot message for turn. Answers for a turn that is no
// longer thinking are dropped and Resolve returns false.
func (s *Store) Resolve(turn types.Turn, text string, meta *types.DiagnosticMetadata) bool {
	s.mu.Lock()
	if s.active == nil || s.active.ID != turn.ID || s.active.BotMessageID != turn.BotMessageID {
		s.mu.Unlock()
		s.logger.Debug("stale_resolution_dropped", logging.F("turn_id", turn.ID), logging.F("message_id", turn.BotMessageID))
		return false
	}
	s.completeLocked(turn.BotMessageID, text, meta)
	s.mu.Unlock()
	s.notify()
	return true
}

// HandleChannelEvent routes push-channel events into the store.
func (s *Store) HandleChannelEvent(event thoughts.Event) {
	switch event.Kind {
	case thoughts.EventThoughtReceived:
		if _, ok := s.ApplyThought(event.Thought); !ok {
			s.logger.Debug("thought_dropped", logging.F("bytes", len(event.Thought)))
		}
	case thoughts.EventConnected:
		s.setChannel(thoughts.StateConnected)
	case thoughts.EventError:
		s.setChannel(thoughts.StateError)
	case thoughts.EventClosed:
		s.setChannel(thoughts.StateClosed)
	}
}

func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := State{
		Messages: make([]types.Message, len(s.messages)),
		Channel:  s.channel,
	}
	for i, msg := range s.messages {
		out.Messages[i] = msg.Clone()
	}
	if s.active != nil {
		out.Thinking = true
		out.ThinkingMessageID = s.active.BotMessageID
		out.ActiveTurn = s.active.ID
		out.CurrentThought = s.thought
	}
	return out
}

func (s *Store) LastCompletedBotMessage() (types.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.messages) - 1; i >= 0; i-- {
		msg := s.messages[i]
		if msg.Sender == types.SenderBot && msg.Completed && msg.ID != greetingMessageID {
			return msg.Clone(), true
		}
	}
	return types.Message{}, false
}

func (s *Store) setChannel(state thoughts.State) {
	s.mu.Lock()
	s.channel = state
	s.mu.Unlock()
	s.notify()
}

func (s *Store) appendLocked(msg types.Message) {
	s.index[msg.ID] = len(s.messages)
	s.messages = append(s.messages, msg)
}

// completeLocked finishes the bot message in place and, when it is the
// thinking message, clears the thinking state and the current thought.
func (s *Store) completeLocked(id types.MessageID, text string, meta *types.DiagnosticMetadata) {
	pos, ok := s.index[id]
	if !ok {
		return
	}
	msg := &s.messages[pos]
	msg.Text = text
	msg.Completed = true
	if meta != nil && !meta.Empty() {
		msg.Metadata = meta
	}
	if s.active != nil && s.active.BotMessageID == id {
		s.active = nil
		s.thought = ""
	}
}

func (s *Store) notify() {
	select {
	case s.changes <- struct{}{}:
	default:
	}
}
