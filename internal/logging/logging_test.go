package logging

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestLogfmtLoggerWritesFieldsInOrder(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, Info).(*logfmtLogger)
	logger.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }

	Component(logger, "session").Info("session_created", F("session_id", "s1"), Err(errors.New("boom here")))

	want := `ts=2024-01-02T03:04:05Z level=info msg=session_created component=session session_id=s1 error="boom here"` + "\n"
	if buf.String() != want {
		t.Fatalf("unexpected line:\n got=%q\nwant=%q", buf.String(), want)
	}
}

func TestLogfmtLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, Warn)
	logger.Info("ignored")
	logger.Debug("ignored")
	logger.Warn("kept")
	if strings.Count(buf.String(), "\n") != 1 || !strings.Contains(buf.String(), "msg=kept") {
		t.Fatalf("unexpected output: %q", buf.String())
	}
	if Nop().Enabled(Error) {
		t.Fatalf("nop logger should not be enabled")
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{"debug": Debug, " WARNING ": Warn, "error": Error, "": Info, "bogus": Info}
	for raw, want := range cases {
		if got := ParseLevel(raw); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", raw, got, want)
		}
	}
}
