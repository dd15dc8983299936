package main

import (
	"flag"
	"io"

	"fleetchat/internal/app"
	"fleetchat/internal/logging"
)

type ChatCommand struct {
	wiring commandWiring
}

func NewChatCommand(wiring commandWiring) *ChatCommand {
	return &ChatCommand{wiring: wiring}
}

func (c *ChatCommand) Run(args []string) error {
	fs := flag.NewFlagSet("chat", flag.ContinueOnError)
	fs.SetOutput(c.wiring.stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := c.wiring.loadConfig()
	if err != nil {
		return err
	}
	logger := logging.Nop()
	if c.wiring.openUILog != nil {
		var closer io.Closer
		logger, closer = c.wiring.openUILog(cfg.LogLevel())
		if closer != nil {
			defer closer.Close()
		}
	}
	logger.Info("ui_starting", logging.F("version", c.wiring.version))

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

	opts := app.Options{
		Orchestrator: newOrchestrator(cfg, backend, repo, logger),
		Logger:       logger,
	}
	if repo != nil {
		opts.Recent = repo.SessionIndex()
	}
	return c.wiring.runUI(opts)
}
