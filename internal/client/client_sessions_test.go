package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"

	"fleetchat/internal/types"
)

func newTestClient(url string) *Client {
	return New(Options{SessionURL: url, AgentURL: url, SimulationURL: url})
}

func TestClientCreateSessionSendsParallelLists(t *testing.T) {
	var got CreateSessionRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/sessions/create" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"session_id":"65f0c0ffee"}`))
	}))
	defer server.Close()

	fleet := types.FleetConfig{Slots: []types.FleetSlot{
		{Name: "Trucks", Capacity: 20, ReportedAttributes: []types.AttributeKey{"oil-level"}},
		{Name: "Vans", Capacity: 5},
	}}
	id, err := newTestClient(server.URL).CreateSession(context.Background(), fleet)
	if err != nil {
		t.Fatalf("CreateSession error: %v", err)
	}
	if id != "65f0c0ffee" {
		t.Fatalf("unexpected session id %q", id)
	}
	want := VehicleFleet{
		SelectedFleets: 2,
		FleetNames:     []string{"Trucks", "Vans"},
		FleetSize:      []int{20, 5},
		AttributeList:  [][]string{{"oil-level"}, {}},
	}
	if diff := cmp.Diff(want, got.VehicleFleet); diff != "" {
		t.Fatalf("vehicle fleet mismatch (-want +got):\n%s", diff)
	}
	if got.ChatHistory == nil || len(got.ChatHistory) != 0 {
		t.Fatalf("expected empty chat history, got %#v", got.ChatHistory)
	}
}

func TestClientCreateSessionRejectsMissingID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).CreateSession(context.Background(), types.FleetConfig{})
	if !errors.Is(err, ErrInvalidResponse) {
		t.Fatalf("expected ErrInvalidResponse, got %v", err)
	}
}

func TestClientGetSessionDropsUnselectedSlots(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/sessions/abc" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"vehicle_fleet":{"selected_fleets":2,"fleet_names":["A","B","C"],"fleet_size":[10,250,30],"attribute_list":[["temperature","oil-level"],[],["gas-level"]]}}`))
	}))
	defer server.Close()

	fleet, err := newTestClient(server.URL).GetSession(context.Background(), "abc")
	if err != nil {
		t.Fatalf("GetSession error: %v", err)
	}
	want := types.FleetConfig{Slots: []types.FleetSlot{
		{Name: "A", Capacity: 10, ReportedAttributes: []types.AttributeKey{"oil-level", "temperature"}},
		{Name: "B", Capacity: 100},
	}}
	if diff := cmp.Diff(want, fleet); diff != "" {
		t.Fatalf("fleet mismatch (-want +got):\n%s", diff)
	}
}

func TestClientGetSessionNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"Session not found"}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).GetSession(context.Background(), "missing")
	if !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	apiErr := asAPIError(err)
	if apiErr == nil || apiErr.Message != "Session not found" {
		t.Fatalf("unexpected api error %#v", apiErr)
	}
}
