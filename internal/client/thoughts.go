package client

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"fleetchat/internal/config"
)

const thoughtsHandshakeTimeout = 10 * time.Second

// ThoughtDialer opens the agent's push channel for one thread.
type ThoughtDialer struct {
	URL    string
	Dialer *websocket.Dialer
}

func NewThoughtDialer(rawURL string) *ThoughtDialer {
	return &ThoughtDialer{
		URL: strings.TrimRight(strings.TrimSpace(rawURL), "/"),
		Dialer: &websocket.Dialer{
			HandshakeTimeout: thoughtsHandshakeTimeout,
		},
	}
}

func NewThoughtDialerFromConfig(cfg config.CoreConfig) *ThoughtDialer {
	return NewThoughtDialer(cfg.ThoughtsURL())
}

func (d *ThoughtDialer) DialThoughts(ctx context.Context, threadID string) (*websocket.Conn, error) {
	if d == nil || d.URL == "" {
		return nil, fmt.Errorf("thoughts url is required")
	}
	target, err := url.Parse(d.URL)
	if err != nil {
		return nil, fmt.Errorf("parse thoughts url: %w", err)
	}
	query := target.Query()
	query.Set("thread_id", threadID)
	target.RawQuery = query.Encode()

	dialer := d.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	conn, resp, err := dialer.DialContext(ctx, target.String(), nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}
	return conn, nil
}
