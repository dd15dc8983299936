package main

import (
	"context"

	"github.com/gorilla/websocket"

	"fleetchat/internal/activity"
	"fleetchat/internal/client"
	"fleetchat/internal/config"
	"fleetchat/internal/logging"
	"fleetchat/internal/orchestrator"
	"fleetchat/internal/store"
	"fleetchat/internal/thoughts"
	"fleetchat/internal/types"
)

type backendFactory func(cfg config.CoreConfig, logger logging.Logger) (commandBackend, error)

// commandBackend is the remote surface the sub-commands use: everything the
// orchestrator needs plus the run-history and admin endpoints.
type commandBackend interface {
	orchestrator.Backend
	thoughts.Dialer
	ListAgentRuns(ctx context.Context) ([]types.AgentRun, error)
	ResumeAgent(ctx context.Context, threadID string) (*types.AgentRun, error)
	GetRunDocuments(ctx context.Context, threadID string) (types.RunDocuments, error)
	StopSimulation(ctx context.Context) error
}

type clientBackend struct {
	*client.Client
	dialer *client.ThoughtDialer
}

func newClientBackend(cfg config.CoreConfig, logger logging.Logger) (commandBackend, error) {
	return &clientBackend{
		Client: client.NewFromConfig(cfg, logger),
		dialer: client.NewThoughtDialerFromConfig(cfg),
	}, nil
}

func (b *clientBackend) DialThoughts(ctx context.Context, threadID string) (*websocket.Conn, error) {
	return b.dialer.DialThoughts(ctx, threadID)
}

func newOrchestrator(cfg config.CoreConfig, backend commandBackend, repo store.Repository, logger logging.Logger) *orchestrator.Orchestrator {
	var recorder store.SessionRecorder
	if repo != nil {
		recorder.Index = repo.SessionIndex()
	}
	return orchestrator.New(orchestrator.Options{
		Config:   cfg,
		Backend:  backend,
		Dialer:   backend,
		Recorder: recorder,
		Clock:    activity.RealClock(),
		Logger:   logger,
	})
}
