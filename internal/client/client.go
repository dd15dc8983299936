package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"fleetchat/internal/config"
	"fleetchat/internal/logging"
)

const (
	defaultRequestTimeout = 10 * time.Second
	defaultAgentTimeout   = 10 * time.Minute
)

// ErrInvalidResponse marks a 2xx response whose body could not be decoded.
var ErrInvalidResponse = errors.New("invalid response format")

type Options struct {
	SessionURL     string
	AgentURL       string
	SimulationURL  string
	RequestTimeout time.Duration
	AgentTimeout   time.Duration
	Logger         logging.Logger
}

// Client talks to the session, agent and simulation services.
type Client struct {
	sessionURL    string
	agentURL      string
	simulationURL string
	http          *http.Client
	agentHTTP     *http.Client
	beacon        *Beacon
	logger        logging.Logger
}

func New(opts Options) *Client {
	requestTimeout := opts.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = defaultRequestTimeout
	}
	agentTimeout := opts.AgentTimeout
	if agentTimeout <= 0 {
		agentTimeout = defaultAgentTimeout
	}
	logger := logging.Component(opts.Logger, "client")
	httpClient := &http.Client{Timeout: requestTimeout}
	return &Client{
		sessionURL:    strings.TrimRight(opts.SessionURL, "/"),
		agentURL:      strings.TrimRight(opts.AgentURL, "/"),
		simulationURL: strings.TrimRight(opts.SimulationURL, "/"),
		http:          httpClient,
		agentHTTP:     &http.Client{Timeout: agentTimeout},
		beacon:        NewBeacon(httpClient, logger),
		logger:        logger,
	}
}

func NewFromConfig(cfg config.CoreConfig, logger logging.Logger) *Client {
	return New(Options{
		SessionURL:     cfg.SessionBaseURL(),
		AgentURL:       cfg.AgentBaseURL(),
		SimulationURL:  cfg.SimulationBaseURL(),
		RequestTimeout: cfg.RequestTimeout(),
		AgentTimeout:   cfg.AgentTimeout(),
		Logger:         logger,
	})
}

// DrainBeacons waits up to grace for in-flight beacons to finish.
func (c *Client) DrainBeacons(grace time.Duration) bool {
	if c == nil || c.beacon == nil {
		return true
	}
	return c.beacon.Drain(grace)
}

func (c *Client) doJSON(ctx context.Context, httpClient *http.Client, method, url string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeAPIError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	type errorPayload struct {
		Error   string `json:"error"`
		Detail  any    `json:"detail"`
		Message string `json:"message"`
	}
	var payload errorPayload
	_ = json.NewDecoder(resp.Body).Decode(&payload)
	message := strings.TrimSpace(payload.Error)
	if message == "" {
		if detail, ok := payload.Detail.(string); ok {
			message = strings.TrimSpace(detail)
		}
	}
	if message == "" {
		message = strings.TrimSpace(payload.Message)
	}
	if message == "" {
		message = resp.Status
	}
	return &APIError{StatusCode: resp.StatusCode, Message: message}
}

type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("api error (%d): %s", e.StatusCode, e.Message)
}

func asAPIError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return nil
}

func IsNotFound(err error) bool {
	apiErr := asAPIError(err)
	return apiErr != nil && apiErr.StatusCode == http.StatusNotFound
}

// IsAlreadyInState reports the simulation service's "already running" and
// "already stopped" rejections, which callers treat as success.
func IsAlreadyInState(err error) bool {
	apiErr := asAPIError(err)
	if apiErr == nil || apiErr.StatusCode != http.StatusBadRequest {
		return false
	}
	return strings.Contains(strings.ToLower(apiErr.Message), "already")
}
