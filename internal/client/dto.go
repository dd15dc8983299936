package client

import (
	"bytes"
	"encoding/json"
	"strings"

	"fleetchat/internal/types"
)

// VehicleFleet is the session service's view of a fleet configuration:
// parallel lists indexed by slot.
type VehicleFleet struct {
	SelectedFleets int        `json:"selected_fleets"`
	FleetNames     []string   `json:"fleet_names"`
	FleetSize      []int      `json:"fleet_size"`
	AttributeList  [][]string `json:"attribute_list"`
}

type ChatHistoryEntry struct {
	Message   string `json:"message"`
	Sender    string `json:"sender"`
	MessageID int64  `json:"messageID"`
}

type CreateSessionRequest struct {
	VehicleFleet VehicleFleet       `json:"vehicle_fleet"`
	ChatHistory  []ChatHistoryEntry `json:"chat_history"`
}

type CreateSessionResponse struct {
	SessionID string `json:"session_id"`
}

type SessionRecordResponse struct {
	ID           string       `json:"_id,omitempty"`
	VehicleFleet VehicleFleet `json:"vehicle_fleet"`
}

// SimulationSessionRequest seeds the simulator. range1..range3 are the
// vehicle counts per fleet slot.
type SimulationSessionRequest struct {
	SessionID    string       `json:"session_id"`
	Range1       int          `json:"range1"`
	Range2       int          `json:"range2"`
	Range3       int          `json:"range3"`
	TabID        string       `json:"tab_id,omitempty"`
	VehicleFleet VehicleFleet `json:"vehicle_fleet"`
}

type RunAgentRequest struct {
	Query       string
	ThreadID    string
	Filters     []string
	Preferences []string
}

type AgentResult struct {
	ThreadID           string            `json:"thread_id,omitempty"`
	QueryReported      string            `json:"query_reported,omitempty"`
	RecommendationText string            `json:"recommendation_text,omitempty"`
	ChainOfThought     string            `json:"chain_of_thought,omitempty"`
	RecommendationData json.RawMessage   `json:"recommendation_data,omitempty"`
	Checkpoint         json.RawMessage   `json:"checkpoint,omitempty"`
	UsedTools          []json.RawMessage `json:"used_tools,omitempty"`
	AgentProfiles      []json.RawMessage `json:"agent_profiles,omitempty"`
	CreatedAt          string            `json:"created_at,omitempty"`
}

// AnswerText prefers the recommendation and falls back to the chain of
// thought, which older agent builds return instead.
func (r *AgentResult) AnswerText() string {
	if r == nil {
		return ""
	}
	if text := strings.TrimSpace(r.RecommendationText); text != "" {
		return r.RecommendationText
	}
	return r.ChainOfThought
}

func (r *AgentResult) Metadata() *types.DiagnosticMetadata {
	if r == nil {
		return &types.DiagnosticMetadata{}
	}
	return &types.DiagnosticMetadata{
		ThreadID:           r.ThreadID,
		Query:              r.QueryReported,
		CreatedAt:          r.CreatedAt,
		UsedTools:          r.UsedTools,
		RecommendationData: nonNullRaw(r.RecommendationData),
		Checkpoint:         nonNullRaw(r.Checkpoint),
		AgentProfiles:      r.AgentProfiles,
	}
}

func nonNullRaw(raw json.RawMessage) json.RawMessage {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	return raw
}

// FleetToWire flattens slots into the parallel-list wire shape.
func FleetToWire(fleet types.FleetConfig) VehicleFleet {
	out := VehicleFleet{
		SelectedFleets: len(fleet.Slots),
		FleetNames:     make([]string, 0, len(fleet.Slots)),
		FleetSize:      make([]int, 0, len(fleet.Slots)),
		AttributeList:  make([][]string, 0, len(fleet.Slots)),
	}
	for _, slot := range fleet.Slots {
		out.FleetNames = append(out.FleetNames, slot.Name)
		out.FleetSize = append(out.FleetSize, slot.Capacity)
		attrs := make([]string, 0, len(slot.ReportedAttributes))
		for _, attr := range slot.ReportedAttributes {
			attrs = append(attrs, string(attr))
		}
		out.AttributeList = append(out.AttributeList, attrs)
	}
	return out
}

// FleetFromWire keeps only the first selected_fleets slots; list entries
// beyond that count are ignored and missing entries read as zero values.
func FleetFromWire(wire VehicleFleet) types.FleetConfig {
	count := wire.SelectedFleets
	if count > types.MaxFleetSlots {
		count = types.MaxFleetSlots
	}
	if count < 0 {
		count = 0
	}
	fleet := types.FleetConfig{Slots: make([]types.FleetSlot, 0, count)}
	for i := 0; i < count; i++ {
		var slot types.FleetSlot
		if i < len(wire.FleetNames) {
			slot.Name = wire.FleetNames[i]
		}
		if i < len(wire.FleetSize) {
			slot.Capacity = types.ClampCapacity(wire.FleetSize[i])
		}
		if i < len(wire.AttributeList) {
			keys := make([]types.AttributeKey, 0, len(wire.AttributeList[i]))
			for _, raw := range wire.AttributeList[i] {
				keys = append(keys, types.AttributeKey(raw))
			}
			slot.ReportedAttributes = types.NormalizeAttributes(keys)
		}
		fleet.Slots = append(fleet.Slots, slot)
	}
	return fleet
}

// pythonListLiteral renders values the way the agent's literal evaluator
// expects, e.g. ['downtown', 'Fleet 1'].
func pythonListLiteral(values []string) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, value := range values {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('\'')
		value = strings.ReplaceAll(value, `\`, `\\`)
		value = strings.ReplaceAll(value, `'`, `\'`)
		b.WriteString(value)
		b.WriteByte('\'')
	}
	b.WriteByte(']')
	return b.String()
}
