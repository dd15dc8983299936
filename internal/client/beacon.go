package client

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"fleetchat/internal/logging"
)

const beaconTimeout = 5 * time.Second

// Beacon sends fire-and-forget requests that outlive the caller's context.
// Outcomes are only logged.
type Beacon struct {
	http   *http.Client
	logger logging.Logger
	wg     sync.WaitGroup
}

func NewBeacon(httpClient *http.Client, logger logging.Logger) *Beacon {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &Beacon{http: httpClient, logger: logger}
}

func (b *Beacon) Send(method, url string) {
	if b == nil {
		return
	}
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), beaconTimeout)
		defer cancel()
		req, err := http.NewRequestWithContext(ctx, method, url, nil)
		if err != nil {
			b.logger.Warn("beacon_request_invalid", logging.F("url", url), logging.Err(err))
			return
		}
		resp, err := b.http.Do(req)
		if err != nil {
			b.logger.Debug("beacon_failed", logging.F("url", url), logging.Err(err))
			return
		}
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
		b.logger.Debug("beacon_sent", logging.F("url", url), logging.F("status", resp.StatusCode))
	}()
}

// Drain waits for outstanding beacons, giving up after grace. It reports
// whether every beacon finished.
func (b *Beacon) Drain(grace time.Duration) bool {
	if b == nil {
		return true
	}
	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()
	timer := time.NewTimer(grace)
	defer timer.Stop()
	select {
	case <-done:
		return true
	case <-timer.C:
		return false
	}
}
