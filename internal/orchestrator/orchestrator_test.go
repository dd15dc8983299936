package orchestrator

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"fleetchat/internal/activity"
	"fleetchat/internal/client"
	"fleetchat/internal/config"
	"fleetchat/internal/session"
	"fleetchat/internal/simulation"
	"fleetchat/internal/thoughts"
	"fleetchat/internal/types"
)

type fakeBackend struct {
	server     *httptest.Server
	conns      chan *websocket.Conn
	release    chan struct{}
	reduces    atomic.Int32
	starts     atomic.Int32
	bootstraps atomic.Int32
	mu         sync.Mutex
	queries    []string
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()
	b := &fakeBackend{
		conns:   make(chan *websocket.Conn, 4),
		release: make(chan struct{}),
	}
	upgrader := websocket.Upgrader{}
	mux := http.NewServeMux()
	mux.HandleFunc("/sessions/create", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"session_id":"s1"}`))
	})
	mux.HandleFunc("/sessions", func(w http.ResponseWriter, r *http.Request) {
		b.bootstraps.Add(1)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{}`))
	})
	mux.HandleFunc("/simulation/start/", func(w http.ResponseWriter, r *http.Request) {
		b.starts.Add(1)
		_, _ = w.Write([]byte(`{"message":"started"}`))
	})
	mux.HandleFunc("/simulation/reduce-users", func(w http.ResponseWriter, r *http.Request) {
		b.reduces.Add(1)
		_, _ = w.Write([]byte(`{"active_users":0}`))
	})
	mux.HandleFunc("/run-agent", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.queries = append(b.queries, r.URL.Query().Get("query_reported"))
		b.mu.Unlock()
		select {
		case <-b.release:
		case <-r.Context().Done():
			return
		}
		_, _ = w.Write([]byte(`{"recommendation_text":"Check timing belt","thread_id":"s1"}`))
	})
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		b.conns <- conn
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				_ = conn.Close()
				return
			}
		}
	})
	b.server = httptest.NewServer(mux)
	t.Cleanup(b.server.Close)
	return b
}

func (b *fakeBackend) orchestrator(clock activity.Clock) *Orchestrator {
	cfg := config.DefaultCoreConfig()
	cfg.Simulation.IdleTimeout = "1m"
	cfg.Simulation.UnloadGrace = "2s"
	api := client.New(client.Options{SessionURL: b.server.URL, AgentURL: b.server.URL, SimulationURL: b.server.URL})
	dialer := client.NewThoughtDialer("ws" + strings.TrimPrefix(b.server.URL, "http") + "/ws")
	return New(Options{Config: cfg, Backend: api, Dialer: dialer, Clock: clock})
}

func startSession(t *testing.T, o *Orchestrator) {
	t.Helper()
	sessions := o.Sessions()
	if err := sessions.Login(session.LoginPreloaded); err != nil {
		t.Fatalf("Login error: %v", err)
	}
	fleet, err := sessions.FinishConfiguring()
	if err != nil {
		t.Fatalf("FinishConfiguring error: %v", err)
	}
	if _, err := sessions.CreateSession(context.Background(), fleet); err != nil {
		t.Fatalf("CreateSession error: %v", err)
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestOrchestratorAskWithStreamedThoughts(t *testing.T) {
	backend := newFakeBackend(t)
	o := backend.orchestrator(activity.NewManualClock(time.Now()))
	defer o.Close()
	startSession(t, o)
	if backend.starts.Load() != 1 || backend.bootstraps.Load() != 1 {
		t.Fatalf("expected simulation announced, starts=%d bootstraps=%d", backend.starts.Load(), backend.bootstraps.Load())
	}

	view, err := o.AttachConversation(context.Background())
	if err != nil {
		t.Fatalf("AttachConversation error: %v", err)
	}
	conn := <-backend.conns
	waitFor(t, "channel connected", func() bool { return view.ChannelState() == thoughts.StateConnected })

	done := make(chan types.Turn, 1)
	go func() {
		turn, err := o.Ask(context.Background(), "engine noise")
		if err != nil {
			t.Errorf("Ask error: %v", err)
		}
		done <- turn
	}()
	store := view.Conversation
	waitFor(t, "thinking", func() bool { return store.Snapshot().Thinking })

	for _, thought := range []string{"step1", "step2"} {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(thought)); err != nil {
			t.Fatalf("write thought: %v", err)
		}
		waitFor(t, thought, func() bool { return store.Snapshot().CurrentThought == thought })
	}

	close(backend.release)
	turn := <-done
	state := store.Snapshot()
	bot := state.Messages[len(state.Messages)-1]
	if bot.ID != turn.BotMessageID || bot.Text != "Check timing belt" || !bot.Completed {
		t.Fatalf("unexpected bot message %#v", bot)
	}
	if state.Thinking || state.CurrentThought != "" {
		t.Fatalf("expected thinking cleared, got %#v", state)
	}
}

func TestOrchestratorReattachReplacesChannel(t *testing.T) {
	backend := newFakeBackend(t)
	o := backend.orchestrator(activity.NewManualClock(time.Now()))
	defer o.Close()
	startSession(t, o)

	first, err := o.AttachConversation(context.Background())
	if err != nil {
		t.Fatalf("first attach: %v", err)
	}
	<-backend.conns
	second, err := o.AttachConversation(context.Background())
	if err != nil {
		t.Fatalf("second attach: %v", err)
	}
	<-backend.conns
	if first.ChannelState() != thoughts.StateClosed {
		t.Fatalf("expected first channel closed, got %s", first.ChannelState())
	}
	if second.ChannelState() != thoughts.StateConnected {
		t.Fatalf("expected second channel connected, got %s", second.ChannelState())
	}
	if first.Conversation != second.Conversation {
		t.Fatalf("views of one session should share the conversation")
	}
}

func TestOrchestratorIdleTimeoutStopsOnce(t *testing.T) {
	backend := newFakeBackend(t)
	clock := activity.NewManualClock(time.Now())
	o := backend.orchestrator(clock)
	startSession(t, o)

	clock.Advance(time.Minute)
	select {
	case notice := <-o.Notices():
		if notice != simulation.NoticeInactivity {
			t.Fatalf("expected inactivity notice, got %s", notice)
		}
	default:
		t.Fatalf("expected a notice")
	}
	if got := backend.reduces.Load(); got != 1 {
		t.Fatalf("expected one reduce call, got %d", got)
	}
	o.SetVisible(false)
	clock.Advance(time.Hour)
	o.Close()
	if got := backend.reduces.Load(); got != 1 {
		t.Fatalf("expected no further stop signals, got %d", got)
	}
	if !o.Activity().SimulationStopped {
		t.Fatalf("expected stopped activity state")
	}
}

func TestOrchestratorCloseSendsUnloadBeacon(t *testing.T) {
	backend := newFakeBackend(t)
	o := backend.orchestrator(activity.NewManualClock(time.Now()))
	startSession(t, o)
	o.Close()
	o.Close()
	if got := backend.reduces.Load(); got != 1 {
		t.Fatalf("expected one unload beacon, got %d", got)
	}
	select {
	case notice := <-o.Notices():
		t.Fatalf("unload must not raise a notice, got %s", notice)
	default:
	}
}

func TestOrchestratorRequiresSession(t *testing.T) {
	backend := newFakeBackend(t)
	o := backend.orchestrator(activity.NewManualClock(time.Now()))
	defer o.Close()
	if _, err := o.Ask(context.Background(), "q"); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
	if _, err := o.AttachConversation(context.Background()); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
}
