package orchestrator

import (
	"context"

	"fleetchat/internal/conversation"
	"fleetchat/internal/logging"
	"fleetchat/internal/thoughts"
)

// View is one mounted conversation: the shared conversation store plus the
// push channel that belongs to this mount only.
type View struct {
	Conversation *conversation.Store
	channel      *thoughts.Channel
	owner        *Orchestrator
}

func (v *View) ChannelState() thoughts.State {
	return v.channel.State()
}

// Detach closes this view's channel. Detaching a view that has already been
// replaced is a no-op.
func (v *View) Detach() {
	v.close()
	o := v.owner
	o.mu.Lock()
	if o.view == v {
		o.view = nil
	}
	o.mu.Unlock()
}

func (v *View) close() {
	v.channel.Close()
}

// AttachConversation mounts a new view for the live session. Any previous
// view's channel is closed before the new one is dialed.
func (o *Orchestrator) AttachConversation(ctx context.Context) (*View, error) {
	snapshot := o.sessions.Snapshot()
	if !snapshot.Status.Live() {
		return nil, ErrNoSession
	}
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return nil, ErrClosed
	}
	store := o.conversation
	previous := o.view
	o.mu.Unlock()
	if store == nil {
		return nil, ErrNoSession
	}
	if previous != nil {
		previous.close()
	}

	view := &View{Conversation: store, owner: o}
	view.channel = thoughts.New(thoughts.Options{
		Dialer:      o.dialer,
		Sink:        thoughts.SinkFunc(func(event thoughts.Event) { o.routeChannelEvent(view, event) }),
		Logger:      o.logger,
		StreamDebug: o.cfg.StreamDebugEnabled(),
	})
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return nil, ErrClosed
	}
	o.view = view
	o.mu.Unlock()

	if err := view.channel.Open(ctx, snapshot.ID); err != nil {
		// Thoughts are optional; answers still arrive over the agent call.
		o.logger.Warn("thought_channel_unavailable", logging.F("session_id", snapshot.ID), logging.Err(err))
	}
	return view, nil
}

// routeChannelEvent forwards events only from the currently mounted view.
func (o *Orchestrator) routeChannelEvent(view *View, event thoughts.Event) {
	o.mu.Lock()
	current := o.view == view
	o.mu.Unlock()
	if !current {
		return
	}
	view.Conversation.HandleChannelEvent(event)
}
