package main

import (
	"fmt"
	"os"
)

const usageText = `fleetchat is a terminal client for the fleet diagnostics demo.

Usage:
  fleetchat <command> [flags]

Commands:
  chat         run the terminal UI
  ask          ask one diagnostic question and stream the agent's thoughts
  session      create or restore a session (create|restore)
  sessions     list sessions recorded on this machine
  runs         list agent runs, or resume one
  run-docs     print the documents attached to an agent run
  simulation   control the fleet simulation (stop|reduce)
  config       print configuration (effective or defaults)
  help         show help

Flags:
  -h, --help   show help

Examples:
  fleetchat chat
  fleetchat ask --session 5f0c "Why is van 12 overheating?"
  fleetchat session create --fleet "Vans:10:oil-level,temperature"
  fleetchat config --default --format toml
`

func printUsage() {
	fmt.Fprint(os.Stderr, usageText)
}

func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		printUsage()
		return
	}

	wiring := defaultCommandWiring(os.Stdout, os.Stderr)
	commands := buildCommands(wiring)

	switch args[0] {
	case "-h", "--help", "help":
		printUsage()
		return
	}

	runner, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", args[0])
		printUsage()
		os.Exit(2)
	}
	exitOnErr(args[0], runner.Run(args[1:]), wiring.stderr)
}
