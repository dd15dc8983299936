package app

import (
	"fleetchat/internal/orchestrator"
	"fleetchat/internal/simulation"
	"fleetchat/internal/types"
)

type sessionCreatedMsg struct {
	id  string
	err error
}

type sessionRestoredMsg struct {
	id    string
	fleet types.FleetConfig
	err   error
}

type attachMsg struct {
	view *orchestrator.View
	err  error
}

type askDoneMsg struct {
	turn types.Turn
	err  error
}

type conversationChangedMsg struct{}

type noticeMsg struct {
	notice simulation.Notice
}

type recentSessionsMsg struct {
	sessions []*types.Session
	err      error
}

type manualStopDoneMsg struct{}
