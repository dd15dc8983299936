package conversation

import (
	"context"
	"errors"
	"strings"

	"fleetchat/internal/client"
	"fleetchat/internal/logging"
	"fleetchat/internal/types"
)

const (
	TransportFailureText = "Sorry, I couldn't reach the diagnostic service. Please try asking again."
	InvalidResponseText  = "The diagnostic service returned an invalid response format."
)

type AgentClient interface {
	RunAgent(ctx context.Context, req client.RunAgentRequest) (*client.AgentResult, error)
}

type Request struct {
	Query       string
	SessionID   string
	Filters     []string
	Preferences []string
}

// Coordinator runs one diagnostic turn per Ask: it opens the turn in the
// store, waits for the agent and resolves the turn exactly once.
type Coordinator struct {
	store  *Store
	agent  AgentClient
	logger logging.Logger
}

func NewCoordinator(store *Store, agent AgentClient, logger logging.Logger) *Coordinator {
	return &Coordinator{
		store:  store,
		agent:  agent,
		logger: logging.Component(logger, "coordinator"),
	}
}

// Ask blocks until the turn is resolved. Only ErrEmptyQuery is returned;
// agent failures become the bot message's text.
func (c *Coordinator) Ask(ctx context.Context, req Request) (types.Turn, error) {
	turn, err := c.store.Submit(req.Query)
	if err != nil {
		return types.Turn{}, err
	}
	c.logger.Info("diagnostic_turn_started",
		logging.F("turn_id", turn.ID),
		logging.F("message_id", turn.BotMessageID),
		logging.F("session_id", req.SessionID),
	)

	text, meta := c.run(ctx, turn, req)
	if !c.store.Resolve(turn, text, meta) {
		c.logger.Info("diagnostic_turn_discarded", logging.F("turn_id", turn.ID))
	}
	return turn, nil
}

func (c *Coordinator) run(ctx context.Context, turn types.Turn, req Request) (string, *types.DiagnosticMetadata) {
	if c.agent == nil {
		c.logger.Error("diagnostic_agent_missing", logging.F("turn_id", turn.ID))
		return TransportFailureText, nil
	}
	result, err := c.agent.RunAgent(ctx, client.RunAgentRequest{
		Query:       turn.Query,
		ThreadID:    strings.TrimSpace(req.SessionID),
		Filters:     req.Filters,
		Preferences: req.Preferences,
	})
	switch {
	case errors.Is(err, client.ErrInvalidResponse):
		c.logger.Warn("diagnostic_response_invalid", logging.F("turn_id", turn.ID), logging.Err(err))
		return InvalidResponseText, nil
	case err != nil:
		c.logger.Warn("diagnostic_request_failed", logging.F("turn_id", turn.ID), logging.Err(err))
		return TransportFailureText, nil
	}
	c.logger.Info("diagnostic_turn_answered", logging.F("turn_id", turn.ID))
	return result.AnswerText(), result.Metadata()
}
