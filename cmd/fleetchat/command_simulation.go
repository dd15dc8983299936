package main

import (
	"context"
	"errors"
	"flag"
	"fmt"

	"fleetchat/internal/client"
)

type SimulationCommand struct {
	wiring commandWiring
}

func NewSimulationCommand(wiring commandWiring) *SimulationCommand {
	return &SimulationCommand{wiring: wiring}
}

func (c *SimulationCommand) Run(args []string) error {
	if len(args) == 0 {
		return errors.New("simulation requires a subcommand: stop|reduce")
	}
	action := args[0]
	fs := flag.NewFlagSet("simulation "+action, flag.ContinueOnError)
	fs.SetOutput(c.wiring.stderr)
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	backend, err := newCommandBackend(c.wiring)
	if err != nil {
		return err
	}
	ctx := context.Background()
	switch action {
	case "stop":
		err := backend.StopSimulation(ctx)
		if client.IsAlreadyInState(err) {
			_, err = fmt.Fprintln(c.wiring.stdout, "simulation already stopped")
			return err
		}
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(c.wiring.stdout, "simulation stopped")
		return err
	case "reduce":
		active, err := backend.ReduceUsers(ctx)
		if err != nil && !client.IsAlreadyInState(err) {
			return err
		}
		_, err = fmt.Fprintf(c.wiring.stdout, "active users: %d\n", active)
		return err
	default:
		return fmt.Errorf("unknown simulation subcommand: %s", action)
	}
}
