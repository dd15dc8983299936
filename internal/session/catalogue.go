package session

import (
	"fmt"

	"fleetchat/internal/types"
)

type Attribute struct {
	Key        types.AttributeKey
	Label      string
	Selectable bool
}

// The wire keys keep the telemetry service's spellings.
var attributeCatalogue = []Attribute{
	{Key: "oil-level", Label: "Oil level", Selectable: true},
	{Key: "gas-level", Label: "Gas level", Selectable: true},
	{Key: "last-maintance", Label: "Last maintenance", Selectable: true},
	{Key: "ambient-temperature", Label: "Ambient temperature", Selectable: true},
	{Key: "temperature", Label: "Temperature", Selectable: true},
	{Key: "oee", Label: "OEE", Selectable: true},
	{Key: "gas-efficiency", Label: "Gas efficiency", Selectable: true},
	{Key: "distance-driven", Label: "Distance driven", Selectable: true},
	{Key: "latitude", Label: "Latitude"},
	{Key: "performance", Label: "Performance"},
	{Key: "run-time", Label: "Run time"},
	{Key: "longitude", Label: "Longitude"},
	{Key: "avaliability", Label: "Availability"},
	{Key: "quality", Label: "Quality"},
}

func Attributes() []Attribute {
	return append([]Attribute(nil), attributeCatalogue...)
}

func SelectableAttributes() []Attribute {
	out := make([]Attribute, 0, len(attributeCatalogue))
	for _, attr := range attributeCatalogue {
		if attr.Selectable {
			out = append(out, attr)
		}
	}
	return out
}

func LookupAttribute(key types.AttributeKey) (Attribute, bool) {
	for _, attr := range attributeCatalogue {
		if attr.Key == key {
			return attr, true
		}
	}
	return Attribute{}, false
}

const (
	DefaultSlotCapacity = 20
	preloadedFleetCount = 3
)

// PreloadedFleet is the demo user's ready-made configuration.
func PreloadedFleet() types.FleetConfig {
	capacities := []int{20, 10, 20}
	fleet := types.FleetConfig{Slots: make([]types.FleetSlot, 0, preloadedFleetCount)}
	for i := 0; i < preloadedFleetCount; i++ {
		fleet.Slots = append(fleet.Slots, types.FleetSlot{Name: DefaultSlotName(i), Capacity: capacities[i]})
	}
	return fleet
}

func DefaultSlotName(index int) string {
	return fmt.Sprintf("Fleet %d", index+1)
}

// applyRestoreDefaults fills blanks in a fleet read back from the session
// service. Only the first slot's capacity is defaulted; the others keep the
// stored values.
func applyRestoreDefaults(fleet types.FleetConfig) types.FleetConfig {
	fleet = fleet.Clone()
	for i := range fleet.Slots {
		if i == 0 && fleet.Slots[i].Capacity == 0 {
			fleet.Slots[i].Capacity = DefaultSlotCapacity
		}
		if fleet.Slots[i].Name == "" {
			fleet.Slots[i].Name = DefaultSlotName(i)
		}
		fleet.Slots[i].Capacity = types.ClampCapacity(fleet.Slots[i].Capacity)
	}
	return fleet
}

// applyFleetDefaults fills the values a closed configuration form leaves
// blank: a zero first slot gets the default capacity and zeroes the others,
// and unnamed slots take their positional name.
func applyFleetDefaults(fleet types.FleetConfig) types.FleetConfig {
	fleet = fleet.Clone()
	if len(fleet.Slots) == 0 {
		fleet.Slots = []types.FleetSlot{{}}
	}
	if fleet.Slots[0].Capacity == 0 {
		fleet.Slots[0].Capacity = DefaultSlotCapacity
		for i := 1; i < len(fleet.Slots); i++ {
			fleet.Slots[i].Capacity = 0
		}
	}
	for i := range fleet.Slots {
		if fleet.Slots[i].Name == "" {
			fleet.Slots[i].Name = DefaultSlotName(i)
		}
		fleet.Slots[i].Capacity = types.ClampCapacity(fleet.Slots[i].Capacity)
	}
	return fleet
}
