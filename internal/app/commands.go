package app

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"fleetchat/internal/conversation"
	"fleetchat/internal/orchestrator"
	"fleetchat/internal/session"
	"fleetchat/internal/simulation"
	"fleetchat/internal/store"
	"fleetchat/internal/types"
)

const sessionRequestTimeout = 30 * time.Second

func createSessionCmd(sessions *session.Store, fleet types.FleetConfig) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), sessionRequestTimeout)
		defer cancel()
		id, err := sessions.CreateSession(ctx, fleet)
		return sessionCreatedMsg{id: id, err: err}
	}
}

func restoreSessionCmd(sessions *session.Store, id string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), sessionRequestTimeout)
		defer cancel()
		fleet, err := sessions.RestoreSession(ctx, id)
		return sessionRestoredMsg{id: id, fleet: fleet, err: err}
	}
}

func attachCmd(o *orchestrator.Orchestrator) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), sessionRequestTimeout)
		defer cancel()
		view, err := o.AttachConversation(ctx)
		return attachMsg{view: view, err: err}
	}
}

// askCmd runs without a deadline; the agent client bounds the call.
func askCmd(o *orchestrator.Orchestrator, query string) tea.Cmd {
	return func() tea.Msg {
		turn, err := o.Ask(context.Background(), query)
		return askDoneMsg{turn: turn, err: err}
	}
}

func manualStopCmd(o *orchestrator.Orchestrator) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), sessionRequestTimeout)
		defer cancel()
		o.ManualStop(ctx)
		return manualStopDoneMsg{}
	}
}

func waitForChangesCmd(store *conversation.Store) tea.Cmd {
	if store == nil {
		return nil
	}
	return func() tea.Msg {
		<-store.Changes()
		return conversationChangedMsg{}
	}
}

func waitForNoticeCmd(notices <-chan simulation.Notice) tea.Cmd {
	return func() tea.Msg {
		notice, ok := <-notices
		if !ok {
			return nil
		}
		return noticeMsg{notice: notice}
	}
}

func recentSessionsCmd(index store.SessionIndexStore) tea.Cmd {
	if index == nil {
		return nil
	}
	return func() tea.Msg {
		sessions, err := index.ListRecords(context.Background())
		return recentSessionsMsg{sessions: sessions, err: err}
	}
}
