package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"fleetchat/internal/types"
)

func TestClientStartSimulationAlreadyRunning(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/simulation/start/35" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"Simulation is already running"}`))
	}))
	defer server.Close()

	err := newTestClient(server.URL).StartSimulation(context.Background(), 35)
	if err == nil || !IsAlreadyInState(err) {
		t.Fatalf("expected already-in-state error, got %v", err)
	}
}

func TestClientBootstrapSimulationSession(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/sessions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	fleet := types.FleetConfig{Slots: []types.FleetSlot{{Name: "Fleet 1", Capacity: 35}}}
	if err := newTestClient(server.URL).BootstrapSimulationSession(context.Background(), "s-1", fleet); err != nil {
		t.Fatalf("BootstrapSimulationSession error: %v", err)
	}
	if got["session_id"] != "s-1" {
		t.Fatalf("unexpected session_id in %#v", got)
	}
	for key, want := range map[string]float64{"range1": 35, "range2": 10, "range3": 20} {
		if got[key] != want {
			t.Fatalf("%s: got %v want %v", key, got[key], want)
		}
	}
	if tab, _ := got["tab_id"].(string); tab == "" {
		t.Fatalf("expected a tab id in %#v", got)
	}
	vehicles, _ := got["vehicle_fleet"].(map[string]any)
	if vehicles["selected_fleets"] != float64(1) {
		t.Fatalf("unexpected vehicle_fleet %#v", got["vehicle_fleet"])
	}
}

func TestSimulationRangesFallBackPerSlot(t *testing.T) {
	fleet := types.FleetConfig{Slots: []types.FleetSlot{
		{Name: "Fleet 1", Capacity: 0},
		{Name: "Fleet 2", Capacity: 15},
		{Name: "Fleet 3", Capacity: 0},
	}}
	if got, want := simulationRanges(fleet), [3]int{20, 15, 20}; got != want {
		t.Fatalf("got %v want %v", got, want)
	}
	if got, want := simulationRanges(types.FleetConfig{}), [3]int{20, 10, 20}; got != want {
		t.Fatalf("empty fleet: got %v want %v", got, want)
	}
}

func TestClientReduceUsers(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"active_users":2}`))
	}))
	defer server.Close()

	active, err := newTestClient(server.URL).ReduceUsers(context.Background())
	if err != nil {
		t.Fatalf("ReduceUsers error: %v", err)
	}
	if active != 2 {
		t.Fatalf("expected 2 active users, got %d", active)
	}
}

func TestClientBeaconReduceUsersDrains(t *testing.T) {
	var (
		mu    sync.Mutex
		paths []string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.Method+" "+r.URL.Path)
		mu.Unlock()
		_, _ = w.Write([]byte(`{"active_users":0}`))
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	c.BeaconReduceUsers()
	if !c.DrainBeacons(2 * time.Second) {
		t.Fatalf("expected beacon to drain")
	}
	mu.Lock()
	defer mu.Unlock()
	if len(paths) != 1 || paths[0] != "POST /simulation/reduce-users" {
		t.Fatalf("unexpected beacon requests %v", paths)
	}
}

func TestClientBeaconIgnoresUnreachableServer(t *testing.T) {
	c := New(Options{SimulationURL: "http://127.0.0.1:1"})
	c.BeaconReduceUsers()
	if !c.DrainBeacons(beaconTimeout + time.Second) {
		t.Fatalf("expected failed beacon to finish")
	}
}
