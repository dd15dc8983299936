package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"fleetchat/internal/conversation"
	"fleetchat/internal/logging"
	"fleetchat/internal/session"
	"fleetchat/internal/types"
)

// AskCommand runs one diagnostic turn outside the TUI. It goes live like a
// chat session would, so the simulation is announced and released.
type AskCommand struct {
	wiring commandWiring
}

func NewAskCommand(wiring commandWiring) *AskCommand {
	return &AskCommand{wiring: wiring}
}

type askOutput struct {
	SessionID string                    `json:"session_id"`
	Turn      types.TurnID              `json:"turn_id"`
	Query     string                    `json:"query"`
	Answer    string                    `json:"answer"`
	Metadata  *types.DiagnosticMetadata `json:"metadata,omitempty"`
}

func (c *AskCommand) Run(args []string) error {
	fs := flag.NewFlagSet("ask", flag.ContinueOnError)
	fs.SetOutput(c.wiring.stderr)
	sessionID := fs.String("session", "", "restore this session instead of creating a preloaded one")
	asJSON := fs.Bool("json", false, "print the answer and metadata as json")
	quiet := fs.Bool("quiet", false, "do not stream thoughts to stderr")
	var filters stringList
	fs.Var(&filters, "filter", "query filter to enable (repeatable)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	query := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if query == "" {
		return errors.New("ask requires a question")
	}

	cfg, err := c.wiring.loadConfig()
	if err != nil {
		return err
	}
	logger := newCLILogger(cfg, c.wiring.stderr)
	backend, err := c.wiring.newBackend(cfg, logger)
	if err != nil {
		return err
	}
	repo, err := c.wiring.openRepository()
	if err != nil {
		logger.Warn("session_index_unavailable", logging.Err(err))
		repo = nil
	}
	if repo != nil {
		defer repo.Close()
	}

	o := newOrchestrator(cfg, backend, repo, logger)
	defer o.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sessions := o.Sessions()
	for _, filter := range filters {
		if err := sessions.Filters().Set(filter, true); err != nil {
			return err
		}
	}
	if err := goLive(ctx, sessions, *sessionID); err != nil {
		return err
	}
	view, err := o.AttachConversation(ctx)
	if err != nil {
		return err
	}
	defer view.Detach()

	streamDone := make(chan struct{})
	streamCtx, cancelStream := context.WithCancel(ctx)
	go func() {
		defer close(streamDone)
		if !*quiet {
			c.streamThoughts(streamCtx, view.Conversation)
		}
	}()
	turn, err := o.Ask(ctx, query)
	cancelStream()
	<-streamDone
	if err != nil {
		return err
	}

	answer, ok := answerFor(view.Conversation, turn)
	if !ok {
		return errors.New("no answer was recorded for the question")
	}
	if *asJSON {
		encoder := json.NewEncoder(c.wiring.stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(askOutput{
			SessionID: sessions.SessionID(),
			Turn:      turn.ID,
			Query:     turn.Query,
			Answer:    answer.Text,
			Metadata:  answer.Metadata,
		})
	}
	_, err = fmt.Fprintln(c.wiring.stdout, answer.Text)
	return err
}

func (c *AskCommand) streamThoughts(ctx context.Context, store *conversation.Store) {
	last := ""
	for {
		select {
		case <-ctx.Done():
			return
		case <-store.Changes():
		}
		thought := store.Snapshot().CurrentThought
		if thought == "" || thought == last {
			continue
		}
		last = thought
		fmt.Fprintf(c.wiring.stderr, "… %s\n", oneLine(thought))
	}
}

func goLive(ctx context.Context, sessions *session.Store, id string) error {
	if id = strings.TrimSpace(id); id != "" {
		_, err := sessions.RestoreSession(ctx, id)
		return err
	}
	if err := sessions.Login(session.LoginPreloaded); err != nil {
		return err
	}
	fleet, err := sessions.FinishConfiguring()
	if err != nil {
		return err
	}
	_, err = sessions.CreateSession(ctx, fleet)
	return err
}

func answerFor(store *conversation.Store, turn types.Turn) (types.Message, bool) {
	for _, msg := range store.Snapshot().Messages {
		if msg.ID == turn.BotMessageID && msg.Completed {
			return msg, true
		}
	}
	return types.Message{}, false
}
