package main

import (
	"context"
	"flag"
	"strings"
)

type SessionsCommand struct {
	wiring commandWiring
}

func NewSessionsCommand(wiring commandWiring) *SessionsCommand {
	return &SessionsCommand{wiring: wiring}
}

func (c *SessionsCommand) Run(args []string) error {
	fs := flag.NewFlagSet("sessions", flag.ContinueOnError)
	fs.SetOutput(c.wiring.stderr)
	forget := fs.String("forget", "", "remove a session from the local index")
	if err := fs.Parse(args); err != nil {
		return err
	}

	repo, err := c.wiring.openRepository()
	if err != nil {
		return err
	}
	defer repo.Close()

	ctx := context.Background()
	index := repo.SessionIndex()
	if id := strings.TrimSpace(*forget); id != "" {
		if err := index.DeleteRecord(ctx, id); err != nil {
			return err
		}
	}
	sessions, err := index.ListRecords(ctx)
	if err != nil {
		return err
	}
	printSessions(c.wiring.stdout, sessions)
	return nil
}
