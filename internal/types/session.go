package types

import (
	"sort"
	"strings"
	"time"
)

type SessionStatus string

const (
	SessionStatusUnconfigured SessionStatus = "unconfigured"
	SessionStatusConfiguring  SessionStatus = "configuring"
	SessionStatusActive       SessionStatus = "active"
	SessionStatusRestored     SessionStatus = "restored"
)

// Live reports whether the session is bound to a server-side record.
func (s SessionStatus) Live() bool {
	return s == SessionStatusActive || s == SessionStatusRestored
}

const (
	MaxFleetSlots    = 3
	MaxFleetCapacity = 100
)

type AttributeKey string

type FleetSlot struct {
	Name               string         `json:"name"`
	Capacity           int            `json:"capacity"`
	ReportedAttributes []AttributeKey `json:"reported_attributes,omitempty"`
}

func (s FleetSlot) Reports(key AttributeKey) bool {
	for _, attr := range s.ReportedAttributes {
		if attr == key {
			return true
		}
	}
	return false
}

// FleetConfig holds between one and three slots; slot i exists only while
// the selected fleet count is at least i+1.
type FleetConfig struct {
	Slots []FleetSlot `json:"slots"`
}

func (c FleetConfig) SelectedFleetCount() int {
	return len(c.Slots)
}

func (c FleetConfig) Total() int {
	total := 0
	for _, slot := range c.Slots {
		total += slot.Capacity
	}
	return total
}

func (c FleetConfig) Clone() FleetConfig {
	out := FleetConfig{Slots: make([]FleetSlot, 0, len(c.Slots))}
	for _, slot := range c.Slots {
		slot.ReportedAttributes = append([]AttributeKey(nil), slot.ReportedAttributes...)
		out.Slots = append(out.Slots, slot)
	}
	return out
}

type Session struct {
	ID         string        `json:"session_id"`
	Fleet      FleetConfig   `json:"fleet"`
	Status     SessionStatus `json:"status"`
	LastUsedAt time.Time     `json:"last_used_at"`
}

func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.Fleet = s.Fleet.Clone()
	return &out
}

// NormalizeAttributes trims, dedupes and sorts attribute keys.
func NormalizeAttributes(keys []AttributeKey) []AttributeKey {
	if len(keys) == 0 {
		return nil
	}
	seen := map[AttributeKey]struct{}{}
	out := make([]AttributeKey, 0, len(keys))
	for _, raw := range keys {
		key := AttributeKey(strings.TrimSpace(string(raw)))
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func ClampCapacity(value int) int {
	if value < 0 {
		return 0
	}
	if value > MaxFleetCapacity {
		return MaxFleetCapacity
	}
	return value
}
