package main

import (
	"encoding/json"
	"errors"
	"flag"
	"io"
	"strings"

	toml "github.com/pelletier/go-toml/v2"

	"fleetchat/internal/config"
)

type ConfigCommand struct {
	stdout     io.Writer
	stderr     io.Writer
	loadConfig func() (config.CoreConfig, error)
}

const (
	configFormatJSON = "json"
	configFormatTOML = "toml"
)

type configOutput struct {
	CoreConfigPath string                    `json:"core_config_path,omitempty" toml:"core_config_path,omitempty"`
	Backend        effectiveBackendConfig    `json:"backend" toml:"backend"`
	Simulation     effectiveSimulationConfig `json:"simulation" toml:"simulation"`
	Chat           effectiveChatConfig       `json:"chat" toml:"chat"`
	Logging        effectiveLoggingConfig    `json:"logging" toml:"logging"`
	Debug          effectiveDebugConfig      `json:"debug" toml:"debug"`
}

type effectiveBackendConfig struct {
	SessionURL     string `json:"session_url" toml:"session_url"`
	AgentURL       string `json:"agent_url" toml:"agent_url"`
	SimulationURL  string `json:"simulation_url" toml:"simulation_url"`
	ThoughtsURL    string `json:"thoughts_url" toml:"thoughts_url"`
	RequestTimeout string `json:"request_timeout" toml:"request_timeout"`
	AgentTimeout   string `json:"agent_timeout" toml:"agent_timeout"`
}

type effectiveSimulationConfig struct {
	IdleTimeout       string `json:"idle_timeout" toml:"idle_timeout"`
	DefaultFleetTotal int    `json:"default_fleet_total" toml:"default_fleet_total"`
	UnloadGrace       string `json:"unload_grace" toml:"unload_grace"`
}

type effectiveChatConfig struct {
	Preferences []string `json:"preferences" toml:"preferences"`
	Greeting    string   `json:"greeting" toml:"greeting"`
}

type effectiveLoggingConfig struct {
	Level string `json:"level" toml:"level"`
}

type effectiveDebugConfig struct {
	StreamDebug bool `json:"stream_debug" toml:"stream_debug"`
}

func NewConfigCommand(stdout, stderr io.Writer, loadConfig func() (config.CoreConfig, error)) *ConfigCommand {
	if loadConfig == nil {
		loadConfig = config.LoadCoreConfig
	}
	return &ConfigCommand{
		stdout:     stdout,
		stderr:     stderr,
		loadConfig: loadConfig,
	}
}

func (c *ConfigCommand) Run(args []string) error {
	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	defaults := fs.Bool("default", false, "print default config values")
	format := fs.String("format", configFormatJSON, "output format: json|toml")
	if err := fs.Parse(args); err != nil {
		return err
	}

	resolvedFormat, err := resolveConfigFormat(*format)
	if err != nil {
		return err
	}
	cfg := config.DefaultCoreConfig()
	if !*defaults {
		cfg, err = c.loadConfig()
		if err != nil {
			return err
		}
	}
	out := buildConfigOutput(cfg)
	if path, err := config.CoreConfigPath(); err == nil {
		out.CoreConfigPath = path
	}
	return writeConfigOutput(c.stdout, resolvedFormat, out)
}

func buildConfigOutput(cfg config.CoreConfig) configOutput {
	preferences := cfg.Preferences()
	if preferences == nil {
		preferences = []string{}
	}
	return configOutput{
		Backend: effectiveBackendConfig{
			SessionURL:     cfg.SessionBaseURL(),
			AgentURL:       cfg.AgentBaseURL(),
			SimulationURL:  cfg.SimulationBaseURL(),
			ThoughtsURL:    cfg.ThoughtsURL(),
			RequestTimeout: cfg.RequestTimeout().String(),
			AgentTimeout:   cfg.AgentTimeout().String(),
		},
		Simulation: effectiveSimulationConfig{
			IdleTimeout:       cfg.IdleTimeout().String(),
			DefaultFleetTotal: cfg.DefaultFleetTotal(),
			UnloadGrace:       cfg.UnloadGrace().String(),
		},
		Chat: effectiveChatConfig{
			Preferences: preferences,
			Greeting:    cfg.Greeting(),
		},
		Logging: effectiveLoggingConfig{
			Level: cfg.LogLevel(),
		},
		Debug: effectiveDebugConfig{
			StreamDebug: cfg.StreamDebugEnabled(),
		},
	}
}

func writeConfigOutput(out io.Writer, format string, payload any) error {
	switch format {
	case configFormatJSON:
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(payload)
	case configFormatTOML:
		data, err := toml.Marshal(payload)
		if err != nil {
			return err
		}
		if len(data) == 0 || data[len(data)-1] != '\n' {
			data = append(data, '\n')
		}
		_, err = out.Write(data)
		return err
	default:
		return errors.New("unsupported format")
	}
}

func resolveConfigFormat(raw string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", configFormatJSON:
		return configFormatJSON, nil
	case configFormatTOML:
		return configFormatTOML, nil
	default:
		return "", errors.New("invalid format: must be json or toml")
	}
}
