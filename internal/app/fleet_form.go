package app

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"fleetchat/internal/session"
	"fleetchat/internal/types"
)

type formFieldKind int

const (
	fieldFleetCount formFieldKind = iota
	fieldSlotName
	fieldSlotCapacity
	fieldSlotAttributes
)

type formField struct {
	kind formFieldKind
	slot int
}

// FleetForm edits the draft fleet held by the session store. Every change
// is written through immediately so the store stays the source of truth.
type FleetForm struct {
	sessions   *session.Store
	names      [types.MaxFleetSlots]textinput.Model
	capacities [types.MaxFleetSlots]textinput.Model
	attrCursor [types.MaxFleetSlots]int
	selectable []session.Attribute
	focus      int
	status     string
}

func NewFleetForm(sessions *session.Store, width int) *FleetForm {
	f := &FleetForm{sessions: sessions, selectable: session.SelectableAttributes()}
	fleet := sessions.Snapshot().Fleet
	for i := 0; i < types.MaxFleetSlots; i++ {
		name := textinput.New()
		name.Prompt = ""
		name.CharLimit = 40
		name.Placeholder = session.DefaultSlotName(i)
		capacity := textinput.New()
		capacity.Prompt = ""
		capacity.CharLimit = 3
		capacity.Placeholder = "0"
		if i < len(fleet.Slots) {
			name.SetValue(fleet.Slots[i].Name)
			if fleet.Slots[i].Capacity > 0 {
				capacity.SetValue(strconv.Itoa(fleet.Slots[i].Capacity))
			}
		}
		f.names[i] = name
		f.capacities[i] = capacity
	}
	f.Resize(width)
	f.syncFocus()
	return f
}

func (f *FleetForm) Resize(width int) {
	inputWidth := width - 24
	if inputWidth < 10 {
		inputWidth = 10
	}
	for i := range f.names {
		f.names[i].Width = inputWidth
		f.capacities[i].Width = 5
	}
}

func (f *FleetForm) fields() []formField {
	out := []formField{{kind: fieldFleetCount}}
	count := f.sessions.Snapshot().Fleet.SelectedFleetCount()
	for i := 0; i < count; i++ {
		out = append(out,
			formField{kind: fieldSlotName, slot: i},
			formField{kind: fieldSlotCapacity, slot: i},
			formField{kind: fieldSlotAttributes, slot: i},
		)
	}
	return out
}

func (f *FleetForm) current() formField {
	fields := f.fields()
	if f.focus >= len(fields) {
		f.focus = len(fields) - 1
	}
	return fields[f.focus]
}

// Update handles one key. It reports true when the user submits the form.
func (f *FleetForm) Update(msg tea.KeyMsg) (bool, tea.Cmd) {
	switch msg.String() {
	case "enter", "ctrl+s":
		return true, nil
	case "tab", "down":
		f.move(1)
		return false, nil
	case "shift+tab", "up":
		f.move(-1)
		return false, nil
	}

	field := f.current()
	switch field.kind {
	case fieldFleetCount:
		f.updateCount(msg.String())
		return false, nil
	case fieldSlotAttributes:
		f.updateAttributes(field.slot, msg.String())
		return false, nil
	case fieldSlotName:
		var cmd tea.Cmd
		f.names[field.slot], cmd = f.names[field.slot].Update(msg)
		name := f.names[field.slot].Value()
		f.apply(field.slot, session.SlotPatch{Name: &name})
		return false, cmd
	case fieldSlotCapacity:
		var cmd tea.Cmd
		f.capacities[field.slot], cmd = f.capacities[field.slot].Update(msg)
		f.applyCapacity(field.slot)
		return false, cmd
	}
	return false, nil
}

func (f *FleetForm) move(delta int) {
	fields := f.fields()
	f.focus = (f.focus + delta + len(fields)) % len(fields)
	f.syncFocus()
}

func (f *FleetForm) syncFocus() {
	field := f.current()
	for i := range f.names {
		f.names[i].Blur()
		f.capacities[i].Blur()
	}
	switch field.kind {
	case fieldSlotName:
		f.names[field.slot].Focus()
	case fieldSlotCapacity:
		f.capacities[field.slot].Focus()
	}
}

func (f *FleetForm) updateCount(key string) {
	count := f.sessions.Snapshot().Fleet.SelectedFleetCount()
	switch key {
	case "left", "-":
		count--
	case "right", "+":
		count++
	case "1", "2", "3":
		count, _ = strconv.Atoi(key)
	default:
		return
	}
	if count < 1 || count > types.MaxFleetSlots {
		return
	}
	if err := f.sessions.SetSelectedFleetCount(count); err != nil {
		f.status = err.Error()
		return
	}
	f.status = ""
}

func (f *FleetForm) updateAttributes(slot int, key string) {
	switch key {
	case "left", "h":
		if f.attrCursor[slot] > 0 {
			f.attrCursor[slot]--
		}
	case "right", "l":
		if f.attrCursor[slot] < len(f.selectable)-1 {
			f.attrCursor[slot]++
		}
	case " ", "x":
		fleet := f.sessions.Snapshot().Fleet
		if slot >= len(fleet.Slots) {
			return
		}
		target := f.selectable[f.attrCursor[slot]].Key
		attrs := make([]types.AttributeKey, 0, len(fleet.Slots[slot].ReportedAttributes)+1)
		found := false
		for _, key := range fleet.Slots[slot].ReportedAttributes {
			if key == target {
				found = true
				continue
			}
			attrs = append(attrs, key)
		}
		if !found {
			attrs = append(attrs, target)
		}
		f.apply(slot, session.SlotPatch{Attributes: &attrs})
	}
}

func (f *FleetForm) applyCapacity(slot int) {
	raw := strings.TrimSpace(f.capacities[slot].Value())
	capacity := 0
	if raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			f.status = fmt.Sprintf("capacity must be a number between 0 and %d", types.MaxFleetCapacity)
			return
		}
		capacity = parsed
	}
	f.apply(slot, session.SlotPatch{Capacity: &capacity})
}

func (f *FleetForm) apply(slot int, patch session.SlotPatch) {
	if err := f.sessions.UpdateFleetSlot(slot, patch); err != nil {
		f.status = err.Error()
		return
	}
	f.status = ""
}

func (f *FleetForm) View() string {
	fleet := f.sessions.Snapshot().Fleet
	focused := f.current()
	var b strings.Builder
	b.WriteString(headerStyle.Render("Configure your fleet"))
	b.WriteString("\n\n")

	countLine := fmt.Sprintf("Fleets: ‹ %d ›", fleet.SelectedFleetCount())
	if focused.kind == fieldFleetCount {
		countLine = selectedStyle.Render(countLine)
	}
	b.WriteString(countLine + "\n")

	for i, slot := range fleet.Slots {
		b.WriteString("\n" + dividerStyle.Render(fmt.Sprintf("── %s ──", session.DefaultSlotName(i))) + "\n")
		b.WriteString(f.fieldLabel("Name", focused, fieldSlotName, i) + f.names[i].View() + "\n")
		b.WriteString(f.fieldLabel("Capacity", focused, fieldSlotCapacity, i) + f.capacities[i].View() + "\n")
		b.WriteString(f.fieldLabel("Attributes", focused, fieldSlotAttributes, i))
		for j, attr := range f.selectable {
			label := attr.Label
			if slot.Reports(attr.Key) {
				label = filterOnStyle.Render("[x] " + label)
			} else {
				label = filterOffStyle.Render("[ ] " + label)
			}
			if focused.kind == fieldSlotAttributes && focused.slot == i && f.attrCursor[i] == j {
				label = selectedStyle.Render(label)
			}
			if j > 0 {
				b.WriteString("  ")
			}
			b.WriteString(label)
		}
		b.WriteString("\n")
	}
	b.WriteString("\n" + helpStyle.Render("tab/↑↓ move • ←→ change • space toggle attribute • enter start session • esc back"))
	if f.status != "" {
		b.WriteString("\n" + statusErrorStyle.Render(f.status))
	}
	return b.String()
}

func (f *FleetForm) fieldLabel(label string, focused formField, kind formFieldKind, slot int) string {
	text := fmt.Sprintf("%-12s", label)
	if focused.kind == kind && focused.slot == slot {
		return selectedStyle.Render(text)
	}
	return text
}
