package activity

import (
	"sync"
	"testing"
	"time"
)

type signalRecorder struct {
	mu      sync.Mutex
	signals []Signal
	state   *State
}

func (r *signalRecorder) HandleSignal(signal Signal) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.signals = append(r.signals, signal)
	if r.state != nil && signal != SignalUnloading {
		r.state.MarkStopped()
	}
}

func (r *signalRecorder) got() []Signal {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Signal(nil), r.signals...)
}

func newTestMonitor(t *testing.T) (*Monitor, *ManualClock, *signalRecorder) {
	t.Helper()
	clock := NewManualClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	state := NewState(clock.Now())
	recorder := &signalRecorder{state: state}
	monitor := NewMonitor(Options{Clock: clock, Timeout: time.Minute, State: state, Handler: recorder})
	return monitor, clock, recorder
}

func TestMonitorIdleTimeoutFiresOnce(t *testing.T) {
	monitor, clock, recorder := newTestMonitor(t)
	clock.Advance(59 * time.Second)
	if len(recorder.got()) != 0 {
		t.Fatalf("fired early")
	}
	clock.Advance(time.Second)
	if got := recorder.got(); len(got) != 1 || got[0] != SignalIdleTimeout {
		t.Fatalf("expected one idle timeout, got %v", got)
	}
	monitor.Touch()
	clock.Advance(10 * time.Minute)
	if got := recorder.got(); len(got) != 1 {
		t.Fatalf("stopped monitor must not fire again, got %v", got)
	}
	if !monitor.State().Snapshot().SimulationStopped {
		t.Fatalf("expected stopped state")
	}
}

func TestMonitorTouchResetsIdleTimer(t *testing.T) {
	monitor, clock, recorder := newTestMonitor(t)
	for i := 0; i < 5; i++ {
		clock.Advance(50 * time.Second)
		monitor.Touch()
	}
	if len(recorder.got()) != 0 {
		t.Fatalf("activity should keep the timer from firing")
	}
	if got := monitor.State().Snapshot().LastActivityAt; !got.Equal(clock.Now()) {
		t.Fatalf("expected last activity %s, got %s", clock.Now(), got)
	}
	clock.Advance(time.Minute)
	if got := recorder.got(); len(got) != 1 {
		t.Fatalf("expected idle timeout after inactivity, got %v", got)
	}
}

func TestMonitorHiddenTimeout(t *testing.T) {
	monitor, clock, recorder := newTestMonitor(t)
	clock.Advance(30 * time.Second)
	monitor.SetVisible(false)
	clock.Advance(30 * time.Second)
	got := recorder.got()
	if len(got) != 1 || got[0] != SignalIdleTimeout {
		t.Fatalf("idle timer keeps running while hidden, got %v", got)
	}
	clock.Advance(time.Minute)
	if got := recorder.got(); len(got) != 1 {
		t.Fatalf("hidden timer must not double-stop, got %v", got)
	}
}

func TestMonitorHiddenTimerFiresBeforeIdle(t *testing.T) {
	monitor, clock, recorder := newTestMonitor(t)
	clock.Advance(30 * time.Second)
	monitor.Touch()
	clock.Advance(10 * time.Second)
	monitor.SetVisible(false)
	clock.Advance(20 * time.Second)
	monitor.Touch()
	clock.Advance(40 * time.Second)
	got := recorder.got()
	if len(got) != 1 || got[0] != SignalHiddenTimeout {
		t.Fatalf("expected hidden timeout, got %v", got)
	}
	if clock.Pending() != 0 {
		t.Fatalf("expected no armed timers after stop, got %d", clock.Pending())
	}
}

func TestMonitorVisibilityRegainCancelsHiddenTimer(t *testing.T) {
	monitor, clock, recorder := newTestMonitor(t)
	monitor.SetVisible(false)
	clock.Advance(50 * time.Second)
	monitor.SetVisible(true)
	clock.Advance(50 * time.Second)
	if len(recorder.got()) != 0 {
		t.Fatalf("regaining visibility should cancel and refresh, got %v", recorder.got())
	}
	clock.Advance(10 * time.Second)
	if got := recorder.got(); len(got) != 1 || got[0] != SignalIdleTimeout {
		t.Fatalf("expected idle timeout, got %v", got)
	}
}

func TestMonitorUnloadClearsTimers(t *testing.T) {
	monitor, clock, recorder := newTestMonitor(t)
	monitor.SetVisible(false)
	monitor.Unload()
	monitor.Unload()
	if clock.Pending() != 0 {
		t.Fatalf("expected timers cleared, got %d", clock.Pending())
	}
	clock.Advance(time.Hour)
	if got := recorder.got(); len(got) != 1 || got[0] != SignalUnloading {
		t.Fatalf("expected a single unloading signal, got %v", got)
	}
}

func TestMonitorCloseIsSilent(t *testing.T) {
	monitor, clock, recorder := newTestMonitor(t)
	monitor.Close()
	clock.Advance(time.Hour)
	if len(recorder.got()) != 0 {
		t.Fatalf("closed monitor should not signal")
	}
}

func TestStateMarkStoppedOnce(t *testing.T) {
	state := NewState(time.Now())
	var wg sync.WaitGroup
	wins := make(chan bool, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			wins <- state.MarkStopped()
		}()
	}
	wg.Wait()
	close(wins)
	count := 0
	for won := range wins {
		if won {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected exactly one winner, got %d", count)
	}
}
