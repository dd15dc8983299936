package config

import (
	"errors"
	"net/url"
	"os"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

const (
	defaultSessionURL        = "http://localhost:8005"
	defaultAgentURL          = "http://localhost:8000"
	defaultSimulationURL     = "http://localhost:9000"
	defaultRequestTimeout    = 10 * time.Second
	defaultAgentTimeout      = 10 * time.Minute
	defaultIdleTimeout       = 10 * time.Minute
	defaultUnloadGrace       = 2 * time.Second
	defaultFleetTotal        = 50
	defaultGreeting          = "Hello! I am your AI assistant. How can I help you today?"
	streamDebugEnvVar        = "FLEETCHAT_STREAM_DEBUG"
	thoughtsPath             = "/ws"
	defaultLogLevel          = "info"
	defaultThoughtsURLScheme = "ws"
)

type CoreConfig struct {
	Backend    BackendConfig    `toml:"backend"`
	Simulation SimulationConfig `toml:"simulation"`
	Chat       ChatConfig       `toml:"chat"`
	Logging    LoggingConfig    `toml:"logging"`
	Debug      DebugConfig      `toml:"debug"`
}

type BackendConfig struct {
	SessionURL     string `toml:"session_url"`
	AgentURL       string `toml:"agent_url"`
	SimulationURL  string `toml:"simulation_url"`
	ThoughtsURL    string `toml:"thoughts_url"`
	RequestTimeout string `toml:"request_timeout"`
	AgentTimeout   string `toml:"agent_timeout"`
}

type SimulationConfig struct {
	IdleTimeout       string `toml:"idle_timeout"`
	DefaultFleetTotal int    `toml:"default_fleet_total"`
	UnloadGrace       string `toml:"unload_grace"`
}

type ChatConfig struct {
	Preferences []string `toml:"preferences"`
	Greeting    string   `toml:"greeting"`
}

type LoggingConfig struct {
	Level string `toml:"level"`
}

type DebugConfig struct {
	StreamDebug bool `toml:"stream_debug"`
}

func DefaultCoreConfig() CoreConfig {
	return CoreConfig{
		Backend: BackendConfig{
			SessionURL:     defaultSessionURL,
			AgentURL:       defaultAgentURL,
			SimulationURL:  defaultSimulationURL,
			RequestTimeout: defaultRequestTimeout.String(),
			AgentTimeout:   defaultAgentTimeout.String(),
		},
		Simulation: SimulationConfig{
			IdleTimeout:       defaultIdleTimeout.String(),
			DefaultFleetTotal: defaultFleetTotal,
			UnloadGrace:       defaultUnloadGrace.String(),
		},
		Chat: ChatConfig{
			Greeting: defaultGreeting,
		},
		Logging: LoggingConfig{
			Level: defaultLogLevel,
		},
	}
}

func LoadCoreConfig() (CoreConfig, error) {
	path, err := CoreConfigPath()
	if err != nil {
		return CoreConfig{}, err
	}
	return LoadCoreConfigFromPath(path)
}

func LoadCoreConfigFromPath(path string) (CoreConfig, error) {
	cfg := DefaultCoreConfig()
	if err := readTOML(path, &cfg); err != nil {
		return CoreConfig{}, err
	}
	return cfg, nil
}

func (c CoreConfig) SessionBaseURL() string {
	return baseURL(c.Backend.SessionURL, defaultSessionURL)
}

func (c CoreConfig) AgentBaseURL() string {
	return baseURL(c.Backend.AgentURL, defaultAgentURL)
}

func (c CoreConfig) SimulationBaseURL() string {
	return baseURL(c.Backend.SimulationURL, defaultSimulationURL)
}

// ThoughtsURL is the push channel endpoint. When unset it is derived from
// the agent URL by switching to the websocket scheme and appending /ws.
func (c CoreConfig) ThoughtsURL() string {
	if raw := strings.TrimSpace(c.Backend.ThoughtsURL); raw != "" {
		return strings.TrimRight(raw, "/")
	}
	parsed, err := url.Parse(c.AgentBaseURL())
	if err != nil || parsed.Host == "" {
		return defaultThoughtsURLScheme + "://localhost:8000" + thoughtsPath
	}
	switch parsed.Scheme {
	case "https":
		parsed.Scheme = "wss"
	default:
		parsed.Scheme = defaultThoughtsURLScheme
	}
	parsed.Path = strings.TrimRight(parsed.Path, "/") + thoughtsPath
	return parsed.String()
}

func (c CoreConfig) RequestTimeout() time.Duration {
	return parseDuration(c.Backend.RequestTimeout, defaultRequestTimeout)
}

func (c CoreConfig) AgentTimeout() time.Duration {
	return parseDuration(c.Backend.AgentTimeout, defaultAgentTimeout)
}

func (c CoreConfig) IdleTimeout() time.Duration {
	return parseDuration(c.Simulation.IdleTimeout, defaultIdleTimeout)
}

func (c CoreConfig) UnloadGrace() time.Duration {
	return parseDuration(c.Simulation.UnloadGrace, defaultUnloadGrace)
}

func (c CoreConfig) DefaultFleetTotal() int {
	if c.Simulation.DefaultFleetTotal <= 0 {
		return defaultFleetTotal
	}
	return c.Simulation.DefaultFleetTotal
}

func (c CoreConfig) Preferences() []string {
	return normalizedList(c.Chat.Preferences)
}

func (c CoreConfig) Greeting() string {
	greeting := strings.TrimSpace(c.Chat.Greeting)
	if greeting == "" {
		return defaultGreeting
	}
	return greeting
}

func (c CoreConfig) LogLevel() string {
	level := strings.TrimSpace(c.Logging.Level)
	if level == "" {
		return defaultLogLevel
	}
	return level
}

func (c CoreConfig) StreamDebugEnabled() bool {
	if strings.TrimSpace(os.Getenv(streamDebugEnvVar)) == "1" {
		return true
	}
	return c.Debug.StreamDebug
}

func baseURL(raw, fallback string) string {
	value := strings.TrimRight(strings.TrimSpace(raw), "/")
	if value == "" {
		return fallback
	}
	if !strings.Contains(value, "://") {
		value = "http://" + value
	}
	return value
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func readTOML(path string, out any) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return errors.New("path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil
	}
	return toml.Unmarshal(data, out)
}

func normalizedList(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, 0, len(values))
	seen := map[string]struct{}{}
	for _, raw := range values {
		value := strings.TrimSpace(raw)
		if value == "" {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out
}
