package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadCoreConfigDefaults(t *testing.T) {
	t.Setenv("HOME", filepath.Join(t.TempDir(), "home"))
	t.Setenv(streamDebugEnvVar, "")
	cfg, err := LoadCoreConfig()
	if err != nil {
		t.Fatalf("LoadCoreConfig: %v", err)
	}
	if cfg.AgentBaseURL() != "http://localhost:8000" {
		t.Fatalf("unexpected agent url: %q", cfg.AgentBaseURL())
	}
	if cfg.ThoughtsURL() != "ws://localhost:8000/ws" {
		t.Fatalf("unexpected thoughts url: %q", cfg.ThoughtsURL())
	}
	if cfg.IdleTimeout() != 10*time.Minute {
		t.Fatalf("unexpected idle timeout: %s", cfg.IdleTimeout())
	}
	if cfg.DefaultFleetTotal() != 50 {
		t.Fatalf("unexpected fleet total: %d", cfg.DefaultFleetTotal())
	}
	if cfg.StreamDebugEnabled() {
		t.Fatalf("stream debug should default off")
	}
}

func TestLoadCoreConfigFromTOML(t *testing.T) {
	home := filepath.Join(t.TempDir(), "home")
	t.Setenv("HOME", home)

	dataDir := filepath.Join(home, ".fleetchat")
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	content := []byte(`
[backend]
agent_url = "https://agent.example.com/api/"
session_url = "sessions.internal:8005"

[simulation]
idle_timeout = "90s"
unload_grace = "nonsense"

[chat]
preferences = ["short answers", " short answers ", ""]
`)
	if err := os.WriteFile(filepath.Join(dataDir, "config.toml"), content, 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := LoadCoreConfig()
	if err != nil {
		t.Fatalf("LoadCoreConfig: %v", err)
	}
	if cfg.AgentBaseURL() != "https://agent.example.com/api" {
		t.Fatalf("unexpected agent url: %q", cfg.AgentBaseURL())
	}
	if cfg.ThoughtsURL() != "wss://agent.example.com/api/ws" {
		t.Fatalf("unexpected thoughts url: %q", cfg.ThoughtsURL())
	}
	if cfg.SessionBaseURL() != "http://sessions.internal:8005" {
		t.Fatalf("unexpected session url: %q", cfg.SessionBaseURL())
	}
	if cfg.IdleTimeout() != 90*time.Second {
		t.Fatalf("unexpected idle timeout: %s", cfg.IdleTimeout())
	}
	if cfg.UnloadGrace() != 2*time.Second {
		t.Fatalf("invalid duration should fall back, got %s", cfg.UnloadGrace())
	}
	if prefs := cfg.Preferences(); len(prefs) != 1 || prefs[0] != "short answers" {
		t.Fatalf("unexpected preferences: %#v", prefs)
	}
	if cfg.Greeting() == "" {
		t.Fatalf("greeting should keep its default")
	}
}

func TestStreamDebugEnv(t *testing.T) {
	t.Setenv(streamDebugEnvVar, "1")
	if !DefaultCoreConfig().StreamDebugEnabled() {
		t.Fatalf("expected env var to enable stream debug")
	}
}
