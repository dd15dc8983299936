package session

import (
	"fmt"
	"strings"
	"sync"

	"fleetchat/internal/types"
)

type Filter struct {
	Key   string
	Label string
}

var geofenceFilters = []Filter{
	{Key: "downtown", Label: "Downtown"},
	{Key: "utxa", Label: "University of Texas at Austin"},
	{Key: "north_austin", Label: "North Austin"},
	{Key: "capitol_area", Label: "Capitol Area"},
	{Key: "south_austin", Label: "South Austin"},
	{Key: "east_austin", Label: "East Austin"},
	{Key: "west_austin", Label: "West Austin"},
}

const RecentWindowFilter = "Last 30 min"

// AvailableFilters lists geofences, one label per configured fleet slot and
// the recent-window filter, in display order.
func AvailableFilters(fleet types.FleetConfig) []Filter {
	out := append([]Filter(nil), geofenceFilters...)
	for i, slot := range fleet.Slots {
		label := slot.Name
		if label == "" {
			label = DefaultSlotName(i)
		}
		out = append(out, Filter{Key: DefaultSlotName(i), Label: label})
	}
	return append(out, Filter{Key: RecentWindowFilter, Label: RecentWindowFilter})
}

// FilterSet is the set of query filters toggled on for the next question.
type FilterSet struct {
	mu       sync.Mutex
	selected map[string]struct{}
}

func NewFilterSet() *FilterSet {
	return &FilterSet{selected: map[string]struct{}{}}
}

func (f *FilterSet) Set(key string, on bool) error {
	key = strings.TrimSpace(key)
	if !knownFilter(key) {
		return fmt.Errorf("unknown filter %q", key)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if on {
		f.selected[key] = struct{}{}
	} else {
		delete(f.selected, key)
	}
	return nil
}

func (f *FilterSet) Toggle(key string) (bool, error) {
	key = strings.TrimSpace(key)
	f.mu.Lock()
	_, on := f.selected[key]
	f.mu.Unlock()
	if err := f.Set(key, !on); err != nil {
		return false, err
	}
	return !on, nil
}

func (f *FilterSet) Enabled(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.selected[strings.TrimSpace(key)]
	return ok
}

// Values returns the enabled keys in display order.
func (f *FilterSet) Values() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.selected))
	for _, filter := range AvailableFilters(types.FleetConfig{Slots: make([]types.FleetSlot, types.MaxFleetSlots)}) {
		if _, ok := f.selected[filter.Key]; ok {
			out = append(out, filter.Key)
		}
	}
	return out
}

func (f *FilterSet) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.selected = map[string]struct{}{}
}

func knownFilter(key string) bool {
	if key == RecentWindowFilter {
		return true
	}
	for _, filter := range geofenceFilters {
		if filter.Key == key {
			return true
		}
	}
	for i := 0; i < types.MaxFleetSlots; i++ {
		if key == DefaultSlotName(i) {
			return true
		}
	}
	return false
}
