package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"strings"
)

type RunsCommand struct {
	wiring commandWiring
}

func NewRunsCommand(wiring commandWiring) *RunsCommand {
	return &RunsCommand{wiring: wiring}
}

func (c *RunsCommand) Run(args []string) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	fs.SetOutput(c.wiring.stderr)
	resume := fs.String("resume", "", "resume the run with this thread id")
	asJSON := fs.Bool("json", false, "print json instead of a table")
	if err := fs.Parse(args); err != nil {
		return err
	}

	backend, err := newCommandBackend(c.wiring)
	if err != nil {
		return err
	}
	ctx := context.Background()
	if threadID := strings.TrimSpace(*resume); threadID != "" {
		run, err := backend.ResumeAgent(ctx, threadID)
		if err != nil {
			return err
		}
		encoder := json.NewEncoder(c.wiring.stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(run)
	}
	runs, err := backend.ListAgentRuns(ctx)
	if err != nil {
		return err
	}
	if *asJSON {
		return json.NewEncoder(c.wiring.stdout).Encode(runs)
	}
	printRuns(c.wiring.stdout, runs)
	return nil
}

type RunDocsCommand struct {
	wiring commandWiring
}

func NewRunDocsCommand(wiring commandWiring) *RunDocsCommand {
	return &RunDocsCommand{wiring: wiring}
}

func (c *RunDocsCommand) Run(args []string) error {
	fs := flag.NewFlagSet("run-docs", flag.ContinueOnError)
	fs.SetOutput(c.wiring.stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return errors.New("run-docs requires a thread id")
	}

	backend, err := newCommandBackend(c.wiring)
	if err != nil {
		return err
	}
	docs, err := backend.GetRunDocuments(context.Background(), fs.Arg(0))
	if err != nil {
		return err
	}
	encoder := json.NewEncoder(c.wiring.stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(docs)
}

func newCommandBackend(wiring commandWiring) (commandBackend, error) {
	cfg, err := wiring.loadConfig()
	if err != nil {
		return nil, err
	}
	return wiring.newBackend(cfg, newCLILogger(cfg, wiring.stderr))
}
