package client

import (
	"context"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"fleetchat/internal/types"
)

type ActiveUsersResponse struct {
	ActiveUsers int `json:"active_users"`
}

func (c *Client) StartSimulation(ctx context.Context, numCars int) error {
	path := c.simulationURL + "/simulation/start/" + strconv.Itoa(numCars)
	return c.doJSON(ctx, c.http, http.MethodPost, path, nil, nil)
}

// Vehicle counts sent for a fleet slot that is absent or empty.
var simulationRangeDefaults = [3]int{20, 10, 20}

// BootstrapSimulationSession hands the simulator the session's fleet so it
// can seed vehicles. Each call carries a fresh tab id.
func (c *Client) BootstrapSimulationSession(ctx context.Context, sessionID string, fleet types.FleetConfig) error {
	ranges := simulationRanges(fleet)
	req := SimulationSessionRequest{
		SessionID:    sessionID,
		Range1:       ranges[0],
		Range2:       ranges[1],
		Range3:       ranges[2],
		TabID:        uuid.NewString(),
		VehicleFleet: FleetToWire(fleet),
	}
	return c.doJSON(ctx, c.http, http.MethodPost, c.simulationURL+"/sessions", req, nil)
}

func simulationRanges(fleet types.FleetConfig) [3]int {
	ranges := simulationRangeDefaults
	for i := 0; i < len(ranges) && i < len(fleet.Slots); i++ {
		if capacity := fleet.Slots[i].Capacity; capacity > 0 {
			ranges[i] = capacity
		}
	}
	return ranges
}

func (c *Client) ReduceUsers(ctx context.Context) (int, error) {
	var resp ActiveUsersResponse
	if err := c.doJSON(ctx, c.http, http.MethodPost, c.simulationURL+"/simulation/reduce-users", nil, &resp); err != nil {
		return 0, err
	}
	return resp.ActiveUsers, nil
}

func (c *Client) StopSimulation(ctx context.Context) error {
	return c.doJSON(ctx, c.http, http.MethodPost, c.simulationURL+"/simulation/stop", nil, nil)
}

// BeaconReduceUsers fires the reduce-users request without waiting for or
// reporting its outcome.
func (c *Client) BeaconReduceUsers() {
	c.beacon.Send(http.MethodPost, c.simulationURL+"/simulation/reduce-users")
}
