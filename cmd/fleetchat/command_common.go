package main

import (
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"strings"
	"text/tabwriter"

	"fleetchat/internal/config"
	"fleetchat/internal/logging"
	"fleetchat/internal/types"
)

const version = "dev"

func printSessions(output io.Writer, sessions []*types.Session) {
	writer := tabwriter.NewWriter(output, 0, 8, 2, ' ', 0)
	fmt.Fprintln(writer, "ID\tSTATUS\tFLEETS\tVEHICLES\tLAST USED")
	for _, session := range sessions {
		lastUsed := "-"
		if !session.LastUsedAt.IsZero() {
			lastUsed = session.LastUsedAt.Local().Format("2006-01-02 15:04")
		}
		fmt.Fprintf(writer, "%s\t%s\t%d\t%d\t%s\n", session.ID, session.Status, session.Fleet.SelectedFleetCount(), session.Fleet.Total(), lastUsed)
	}
	_ = writer.Flush()
}

func printRuns(output io.Writer, runs []types.AgentRun) {
	writer := tabwriter.NewWriter(output, 0, 8, 2, ' ', 0)
	fmt.Fprintln(writer, "THREAD\tSTATUS\tCREATED\tQUERY")
	for _, run := range runs {
		status := run.Status
		if status == "" {
			status = "-"
		}
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\n", run.ThreadID, status, run.CreatedAt, oneLine(run.Query))
	}
	_ = writer.Flush()
}

func oneLine(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

type stringList []string

func (s *stringList) String() string {
	return strings.Join(*s, ",")
}

func (s *stringList) Set(value string) error {
	*s = append(*s, value)
	return nil
}

func newCLILogger(cfg config.CoreConfig, stderr io.Writer) logging.Logger {
	return logging.New(stderr, logging.ParseLevel(cfg.LogLevel()))
}

// openUILog sends TUI logs to ui.log since the terminal owns stdout.
func openUILog(level string) (logging.Logger, io.Closer) {
	path, err := config.UILogPath()
	if err != nil {
		return logging.Nop(), nil
	}
	logger, closer, err := logging.OpenFile(path, logging.ParseLevel(level))
	if err != nil {
		return logging.Nop(), nil
	}
	return logger, closer
}

func exitOnErr(label string, err error, stderr io.Writer) {
	if err == nil {
		return
	}
	fmt.Fprintf(stderr, "%s error: %v\n", label, err)
	os.Exit(1)
}

func buildVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok {
		var revision string
		var modified string
		for _, setting := range info.Settings {
			switch setting.Key {
			case "vcs.revision":
				revision = setting.Value
			case "vcs.modified":
				modified = setting.Value
			}
		}
		if revision != "" {
			if modified == "true" {
				return revision + "-dirty"
			}
			return revision
		}
	}

	exe, err := os.Executable()
	if err == nil {
		file, err := os.Open(exe)
		if err == nil {
			defer file.Close()
			hasher := sha256.New()
			if _, err := io.Copy(hasher, file); err == nil {
				sum := hasher.Sum(nil)
				return fmt.Sprintf("bin-%x", sum[:6])
			}
		}
	}

	return version
}
