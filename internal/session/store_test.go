package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"fleetchat/internal/client"
	"fleetchat/internal/types"
)

type fakeSessionClient struct {
	createdFleets []types.FleetConfig
	createID      string
	createErr     error
	restoreFleet  types.FleetConfig
	restoreErr    error
}

func (f *fakeSessionClient) CreateSession(ctx context.Context, fleet types.FleetConfig) (string, error) {
	f.createdFleets = append(f.createdFleets, fleet)
	return f.createID, f.createErr
}

func (f *fakeSessionClient) GetSession(ctx context.Context, id string) (types.FleetConfig, error) {
	return f.restoreFleet, f.restoreErr
}

// gatedSessionClient holds every call until release is closed.
type gatedSessionClient struct {
	mu      sync.Mutex
	calls   int
	entered chan struct{}
	release chan struct{}
}

func (g *gatedSessionClient) CreateSession(ctx context.Context, fleet types.FleetConfig) (string, error) {
	g.mu.Lock()
	g.calls++
	id := fmt.Sprintf("s%d", g.calls)
	g.mu.Unlock()
	g.entered <- struct{}{}
	<-g.release
	return id, nil
}

func (g *gatedSessionClient) GetSession(ctx context.Context, id string) (types.FleetConfig, error) {
	g.entered <- struct{}{}
	<-g.release
	return PreloadedFleet(), nil
}

type recordingAnnouncer struct {
	mu       sync.Mutex
	sessions []types.Session
}

func (a *recordingAnnouncer) Announce(ctx context.Context, session types.Session) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sessions = append(a.sessions, session)
}

type recordingRecorder struct {
	sessions []types.Session
	err      error
}

func (r *recordingRecorder) RecordSession(ctx context.Context, session types.Session) error {
	r.sessions = append(r.sessions, session)
	return r.err
}

func fixedNow() time.Time {
	return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
}

func TestStoreCreateSessionActivatesAndAnnounces(t *testing.T) {
	api := &fakeSessionClient{createID: "s1"}
	announcer := &recordingAnnouncer{}
	recorder := &recordingRecorder{}
	store := NewStore(Options{Client: api, Announcer: announcer, Recorder: recorder, Now: fixedNow})

	if err := store.Login(LoginPreloaded); err != nil {
		t.Fatalf("Login error: %v", err)
	}
	fleet, err := store.FinishConfiguring()
	if err != nil {
		t.Fatalf("FinishConfiguring error: %v", err)
	}
	id, err := store.CreateSession(context.Background(), fleet)
	if err != nil {
		t.Fatalf("CreateSession error: %v", err)
	}
	if id != "s1" {
		t.Fatalf("unexpected id %q", id)
	}
	snap := store.Snapshot()
	if snap.Status != types.SessionStatusActive || snap.ID != "s1" || snap.Fleet.Total() != 50 {
		t.Fatalf("unexpected session %#v", snap)
	}
	if len(announcer.sessions) != 1 || announcer.sessions[0].ID != "s1" {
		t.Fatalf("expected one announcement, got %#v", announcer.sessions)
	}
	if len(recorder.sessions) != 1 || !recorder.sessions[0].LastUsedAt.Equal(fixedNow()) {
		t.Fatalf("expected session recorded, got %#v", recorder.sessions)
	}
	if _, err := store.CreateSession(context.Background(), fleet); !errors.Is(err, ErrSessionLive) {
		t.Fatalf("expected ErrSessionLive, got %v", err)
	}
}

func TestStoreCreateSessionFailureLeavesStatus(t *testing.T) {
	api := &fakeSessionClient{createErr: errors.New("connection refused")}
	announcer := &recordingAnnouncer{}
	store := NewStore(Options{Client: api, Announcer: announcer})
	store.Login(LoginCustom)
	fleet, _ := store.FinishConfiguring()

	if _, err := store.CreateSession(context.Background(), fleet); err == nil {
		t.Fatalf("expected create error")
	}
	if store.Status() != types.SessionStatusConfiguring {
		t.Fatalf("expected status unchanged, got %s", store.Status())
	}
	if len(announcer.sessions) != 0 {
		t.Fatalf("failed create must not announce")
	}
	api.createErr = nil
	api.createID = "s2"
	if _, err := store.CreateSession(context.Background(), fleet); err != nil {
		t.Fatalf("retry should succeed: %v", err)
	}
}

func TestStoreFinishConfiguringDefaults(t *testing.T) {
	store := NewStore(Options{})
	store.Login(LoginCustom)
	if err := store.SetSelectedFleetCount(3); err != nil {
		t.Fatalf("SetSelectedFleetCount error: %v", err)
	}
	five := 5
	store.UpdateFleetSlot(1, SlotPatch{Capacity: &five})
	fleet, err := store.FinishConfiguring()
	if err != nil {
		t.Fatalf("FinishConfiguring error: %v", err)
	}
	want := types.FleetConfig{Slots: []types.FleetSlot{
		{Name: "Fleet 1", Capacity: 20},
		{Name: "Fleet 2", Capacity: 0},
		{Name: "Fleet 3", Capacity: 0},
	}}
	if diff := cmp.Diff(want, fleet); diff != "" {
		t.Fatalf("fleet mismatch (-want +got):\n%s", diff)
	}
}

func TestStoreUpdateFleetSlotOnlyWhileConfiguring(t *testing.T) {
	store := NewStore(Options{})
	name := "Trucks"
	if err := store.UpdateFleetSlot(0, SlotPatch{Name: &name}); !errors.Is(err, ErrNotConfiguring) {
		t.Fatalf("expected ErrNotConfiguring, got %v", err)
	}
	store.Login(LoginCustom)
	if err := store.UpdateFleetSlot(1, SlotPatch{Name: &name}); !errors.Is(err, ErrInvalidSlot) {
		t.Fatalf("expected ErrInvalidSlot for unselected slot, got %v", err)
	}
	big := 250
	attrs := []types.AttributeKey{"temperature", "oil-level", "temperature"}
	if err := store.UpdateFleetSlot(0, SlotPatch{Name: &name, Capacity: &big, Attributes: &attrs}); err != nil {
		t.Fatalf("UpdateFleetSlot error: %v", err)
	}
	slot := store.Snapshot().Fleet.Slots[0]
	if slot.Name != "Trucks" || slot.Capacity != 100 || len(slot.ReportedAttributes) != 2 {
		t.Fatalf("unexpected slot %#v", slot)
	}
	locked := []types.AttributeKey{"latitude"}
	if err := store.UpdateFleetSlot(0, SlotPatch{Attributes: &locked}); !errors.Is(err, ErrInvalidSlot) {
		t.Fatalf("expected unselectable attribute to be rejected, got %v", err)
	}
}

func TestStoreSetSelectedFleetCountDropsSlots(t *testing.T) {
	store := NewStore(Options{})
	store.Login(LoginPreloaded)
	if err := store.SetSelectedFleetCount(1); err != nil {
		t.Fatalf("SetSelectedFleetCount error: %v", err)
	}
	if got := store.Snapshot().Fleet.SelectedFleetCount(); got != 1 {
		t.Fatalf("expected 1 slot, got %d", got)
	}
	if err := store.SetSelectedFleetCount(4); !errors.Is(err, ErrInvalidSlot) {
		t.Fatalf("expected ErrInvalidSlot, got %v", err)
	}
}

func TestStoreRestoreSession(t *testing.T) {
	restored := types.FleetConfig{Slots: []types.FleetSlot{
		{Name: "Trucks", Capacity: 30, ReportedAttributes: []types.AttributeKey{"gas-level"}},
	}}
	api := &fakeSessionClient{restoreFleet: restored}
	announcer := &recordingAnnouncer{}
	store := NewStore(Options{Client: api, Announcer: announcer})

	fleet, err := store.RestoreSession(context.Background(), " abc ")
	if err != nil {
		t.Fatalf("RestoreSession error: %v", err)
	}
	if diff := cmp.Diff(restored, fleet); diff != "" {
		t.Fatalf("restored fleet mismatch (-want +got):\n%s", diff)
	}
	snap := store.Snapshot()
	if snap.Status != types.SessionStatusRestored || snap.ID != "abc" {
		t.Fatalf("unexpected session %#v", snap)
	}
	if len(snap.Fleet.Slots) != 1 {
		t.Fatalf("slots 2 and 3 should be absent, got %d", len(snap.Fleet.Slots))
	}
	if len(announcer.sessions) != 1 {
		t.Fatalf("expected restore to announce")
	}
}

func TestStoreRestoreSessionKeepsStoredCapacities(t *testing.T) {
	api := &fakeSessionClient{restoreFleet: types.FleetConfig{Slots: []types.FleetSlot{
		{Name: "", Capacity: 0},
		{Name: "Vans", Capacity: 15},
		{Name: "", Capacity: 30},
	}}}
	store := NewStore(Options{Client: api})

	fleet, err := store.RestoreSession(context.Background(), "abc")
	if err != nil {
		t.Fatalf("RestoreSession error: %v", err)
	}
	want := types.FleetConfig{Slots: []types.FleetSlot{
		{Name: "Fleet 1", Capacity: 20},
		{Name: "Vans", Capacity: 15},
		{Name: "Fleet 3", Capacity: 30},
	}}
	if diff := cmp.Diff(want, fleet); diff != "" {
		t.Fatalf("restored fleet mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want, store.Snapshot().Fleet); diff != "" {
		t.Fatalf("session fleet mismatch (-want +got):\n%s", diff)
	}
}

func TestStoreConcurrentEstablishGoesLiveOnce(t *testing.T) {
	api := &gatedSessionClient{entered: make(chan struct{}), release: make(chan struct{})}
	announcer := &recordingAnnouncer{}
	store := NewStore(Options{Client: api, Announcer: announcer})

	errs := make(chan error, 2)
	go func() {
		_, err := store.CreateSession(context.Background(), PreloadedFleet())
		errs <- err
	}()
	go func() {
		_, err := store.RestoreSession(context.Background(), "abc")
		errs <- err
	}()
	<-api.entered
	<-api.entered
	close(api.release)

	var live, rejected int
	for i := 0; i < 2; i++ {
		err := <-errs
		switch {
		case err == nil:
			live++
		case errors.Is(err, ErrSessionLive):
			rejected++
		default:
			t.Fatalf("unexpected error %v", err)
		}
	}
	if live != 1 || rejected != 1 {
		t.Fatalf("expected one live and one rejected call, got %d and %d", live, rejected)
	}
	if len(announcer.sessions) != 1 {
		t.Fatalf("expected a single announcement, got %d", len(announcer.sessions))
	}
	if !store.Status().Live() {
		t.Fatalf("expected a live session, got %s", store.Status())
	}
}

func TestStoreRestoreSessionNotFound(t *testing.T) {
	for _, status := range []int{http.StatusNotFound, http.StatusBadRequest} {
		api := &fakeSessionClient{restoreErr: &client.APIError{StatusCode: status, Message: "Session not found"}}
		announcer := &recordingAnnouncer{}
		store := NewStore(Options{Client: api, Announcer: announcer})
		if _, err := store.RestoreSession(context.Background(), "nope"); !errors.Is(err, ErrSessionNotFound) {
			t.Fatalf("status %d: expected ErrSessionNotFound, got %v", status, err)
		}
		if store.Status() != types.SessionStatusUnconfigured || len(announcer.sessions) != 0 {
			t.Fatalf("status %d: store should be untouched", status)
		}
	}
	store := NewStore(Options{Client: &fakeSessionClient{}})
	if _, err := store.RestoreSession(context.Background(), "  "); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected blank id to be not found, got %v", err)
	}
}

func TestStoreRestoreSessionTransportError(t *testing.T) {
	api := &fakeSessionClient{restoreErr: &client.APIError{StatusCode: 503, Message: "unavailable"}}
	store := NewStore(Options{Client: api})
	_, err := store.RestoreSession(context.Background(), "abc")
	if err == nil || errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected a plain restore error, got %v", err)
	}
}
