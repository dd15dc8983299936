package app

import (
	"errors"

	tea "github.com/charmbracelet/bubbletea"

	"fleetchat/internal/logging"
	"fleetchat/internal/orchestrator"
	"fleetchat/internal/store"
)

type Options struct {
	Orchestrator *orchestrator.Orchestrator
	Recent       store.SessionIndexStore
	Logger       logging.Logger
}

// Run drives the terminal UI until the user quits, then closes the
// orchestrator so the simulation is released.
func Run(opts Options) error {
	if opts.Orchestrator == nil {
		return errors.New("orchestrator is required")
	}
	defer opts.Orchestrator.Close()
	model := NewModel(opts.Orchestrator, opts.Recent, opts.Logger)
	p := tea.NewProgram(
		model,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithReportFocus(),
	)
	_, err := p.Run()
	return err
}
