package main

import (
	"io"
	"os"

	"fleetchat/internal/app"
	"fleetchat/internal/config"
	"fleetchat/internal/logging"
	"fleetchat/internal/store"
)

type commandRunner interface {
	Run(args []string) error
}

type commandWiring struct {
	stdout         io.Writer
	stderr         io.Writer
	loadConfig     func() (config.CoreConfig, error)
	newBackend     backendFactory
	openRepository func() (store.Repository, error)
	runUI          func(app.Options) error
	openUILog      func(level string) (logging.Logger, io.Closer)
	version        string
}

func defaultCommandWiring(stdout, stderr io.Writer) commandWiring {
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	return commandWiring{
		stdout:         stdout,
		stderr:         stderr,
		loadConfig:     config.LoadCoreConfig,
		newBackend:     newClientBackend,
		openRepository: openDefaultRepository,
		runUI:          app.Run,
		openUILog:      openUILog,
		version:        buildVersion(),
	}
}

func buildCommands(wiring commandWiring) map[string]commandRunner {
	return map[string]commandRunner{
		"chat":       NewChatCommand(wiring),
		"ask":        NewAskCommand(wiring),
		"session":    NewSessionCommand(wiring),
		"sessions":   NewSessionsCommand(wiring),
		"runs":       NewRunsCommand(wiring),
		"run-docs":   NewRunDocsCommand(wiring),
		"simulation": NewSimulationCommand(wiring),
		"config":     NewConfigCommand(wiring.stdout, wiring.stderr, wiring.loadConfig),
	}
}

func openDefaultRepository() (store.Repository, error) {
	path, err := config.StateDBPath()
	if err != nil {
		return nil, err
	}
	return store.NewBboltRepository(path)
}
