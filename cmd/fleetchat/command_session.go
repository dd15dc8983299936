package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"strconv"
	"strings"

	"fleetchat/internal/logging"
	"fleetchat/internal/session"
	"fleetchat/internal/store"
	"fleetchat/internal/types"
)

// SessionCommand creates or restores a session without going live on the
// simulator; it only talks to the session service and the local index.
type SessionCommand struct {
	wiring commandWiring
}

func NewSessionCommand(wiring commandWiring) *SessionCommand {
	return &SessionCommand{wiring: wiring}
}

type sessionOutput struct {
	SessionID string            `json:"session_id"`
	Status    string            `json:"status"`
	Fleet     types.FleetConfig `json:"fleet"`
}

func (c *SessionCommand) Run(args []string) error {
	if len(args) == 0 {
		return errors.New("session requires a subcommand: create|restore")
	}
	switch args[0] {
	case "create":
		return c.runCreate(args[1:])
	case "restore":
		return c.runRestore(args[1:])
	default:
		return fmt.Errorf("unknown session subcommand: %s", args[0])
	}
}

func (c *SessionCommand) runCreate(args []string) error {
	fs := flag.NewFlagSet("session create", flag.ContinueOnError)
	fs.SetOutput(c.wiring.stderr)
	var fleets stringList
	fs.Var(&fleets, "fleet", "custom fleet as name:capacity[:attr,attr] (repeatable, up to 3)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	slots, err := parseFleetSpecs(fleets)
	if err != nil {
		return err
	}

	sessions, done, err := c.openStore()
	if err != nil {
		return err
	}
	defer done()

	if len(slots) == 0 {
		err = sessions.Login(session.LoginPreloaded)
	} else {
		err = configureCustomFleet(sessions, slots)
	}
	if err != nil {
		return err
	}
	fleet, err := sessions.FinishConfiguring()
	if err != nil {
		return err
	}
	if _, err := sessions.CreateSession(context.Background(), fleet); err != nil {
		return err
	}
	return c.print(sessions.Snapshot())
}

func (c *SessionCommand) runRestore(args []string) error {
	fs := flag.NewFlagSet("session restore", flag.ContinueOnError)
	fs.SetOutput(c.wiring.stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return errors.New("session restore requires a session id")
	}

	sessions, done, err := c.openStore()
	if err != nil {
		return err
	}
	defer done()

	if _, err := sessions.RestoreSession(context.Background(), fs.Arg(0)); err != nil {
		return err
	}
	return c.print(sessions.Snapshot())
}

func (c *SessionCommand) openStore() (*session.Store, func(), error) {
	cfg, err := c.wiring.loadConfig()
	if err != nil {
		return nil, nil, err
	}
	logger := newCLILogger(cfg, c.wiring.stderr)
	backend, err := c.wiring.newBackend(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	var recorder store.SessionRecorder
	done := func() {}
	repo, err := c.wiring.openRepository()
	if err != nil {
		logger.Warn("session_index_unavailable", logging.Err(err))
	} else {
		recorder.Index = repo.SessionIndex()
		done = func() { _ = repo.Close() }
	}
	return session.NewStore(session.Options{
		Client:   backend,
		Recorder: recorder,
		Logger:   logger,
	}), done, nil
}

func (c *SessionCommand) print(snapshot types.Session) error {
	encoder := json.NewEncoder(c.wiring.stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(sessionOutput{
		SessionID: snapshot.ID,
		Status:    string(snapshot.Status),
		Fleet:     snapshot.Fleet,
	})
}

func configureCustomFleet(sessions *session.Store, slots []types.FleetSlot) error {
	if err := sessions.Login(session.LoginCustom); err != nil {
		return err
	}
	if err := sessions.SetSelectedFleetCount(len(slots)); err != nil {
		return err
	}
	for i, slot := range slots {
		name := slot.Name
		capacity := slot.Capacity
		attrs := slot.ReportedAttributes
		if err := sessions.UpdateFleetSlot(i, session.SlotPatch{Name: &name, Capacity: &capacity, Attributes: &attrs}); err != nil {
			return err
		}
	}
	return nil
}

// parseFleetSpecs reads name:capacity[:attr,attr] values.
func parseFleetSpecs(values []string) ([]types.FleetSlot, error) {
	if len(values) > types.MaxFleetSlots {
		return nil, fmt.Errorf("at most %d fleets are supported", types.MaxFleetSlots)
	}
	slots := make([]types.FleetSlot, 0, len(values))
	for _, raw := range values {
		parts := strings.SplitN(raw, ":", 3)
		slot := types.FleetSlot{Name: strings.TrimSpace(parts[0])}
		if len(parts) > 1 && strings.TrimSpace(parts[1]) != "" {
			capacity, err := strconv.Atoi(strings.TrimSpace(parts[1]))
			if err != nil {
				return nil, fmt.Errorf("invalid capacity in %q", raw)
			}
			slot.Capacity = capacity
		}
		if len(parts) > 2 {
			for _, attr := range strings.Split(parts[2], ",") {
				if attr = strings.TrimSpace(attr); attr != "" {
					slot.ReportedAttributes = append(slot.ReportedAttributes, types.AttributeKey(attr))
				}
			}
		}
		slots = append(slots, slot)
	}
	return slots, nil
}
