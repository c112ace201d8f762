package knob

import (
	"go.uber.org/zap"

	"github.com/muurk/knob/internal/logging"
	"github.com/muurk/knob/internal/ui"
)

type pickerState struct {
	visible  bool
	entries  []ui.PickerEntry
	selected int
}

func (p *pickerState) snapshot() ui.Picker {
	return ui.Picker{
		Entries:  append([]ui.PickerEntry(nil), p.entries...),
		Selected: p.selected,
	}
}

// PickerVisible reports whether the zone picker is open.
func (c *Controller) PickerVisible() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.picker.visible
}

// ClosePicker closes the zone picker without a selection.
func (c *Controller) ClosePicker() {
	c.mu.Lock()
	visible := c.picker.visible
	c.picker = pickerState{}
	c.mu.Unlock()
	if visible {
		c.ui.HideZonePicker()
	}
}

// openPicker shows Back, the known zones and Settings, with the current
// zone highlighted.
func (c *Controller) openPicker() {
	c.mu.Lock()
	entries := make([]ui.PickerEntry, 0, len(c.zones)+2)
	entries = append(entries, ui.PickerEntry{ID: ui.PickerBack, Name: "Back"})
	selected := 1
	for _, z := range c.zones {
		if z.ID == c.cfg.ZoneID {
			selected = len(entries)
		}
		entries = append(entries, ui.PickerEntry{ID: z.ID, Name: z.Name})
	}
	entries = append(entries, ui.PickerEntry{ID: ui.PickerSettings, Name: "Settings"})
	c.picker = pickerState{visible: true, entries: entries, selected: selected}
	p := c.picker.snapshot()
	c.mu.Unlock()

	c.ui.ShowZonePicker(p)
}

// handlePicker consumes every input while the picker is open.
func (c *Controller) handlePicker(ev Event, ticks int) bool {
	c.mu.Lock()
	if !c.picker.visible {
		c.mu.Unlock()
		return false
	}

	switch ev.Input {
	case InputVolumeUp, InputVolumeDown:
		c.picker.selected += ticks
		if c.picker.selected < 0 {
			c.picker.selected = 0
		}
		if last := len(c.picker.entries) - 1; c.picker.selected > last {
			c.picker.selected = last
		}
		p := c.picker.snapshot()
		c.mu.Unlock()
		c.ui.ShowZonePicker(p)
		return true

	case InputTap:
		if ev.Element < 0 || ev.Element >= len(c.picker.entries) {
			c.mu.Unlock()
			return true
		}
		c.picker.selected = ev.Element
		fallthrough

	case InputPlayPause:
		id := c.picker.entries[c.picker.selected].ID
		c.picker = pickerState{}
		c.mu.Unlock()

		c.ui.HideZonePicker()
		c.confirmPicker(id)
		return true

	case InputMenu:
		c.picker = pickerState{}
		c.mu.Unlock()
		c.ui.HideZonePicker()
		return true

	default:
		c.mu.Unlock()
		return true
	}
}

func (c *Controller) confirmPicker(id string) {
	switch id {
	case ui.PickerBack:
		logging.Debug("Zone picker: back")
	case ui.PickerSettings:
		logging.Debug("Zone picker: settings")
		c.ui.ShowSettings()
	default:
		logging.Debug("Zone picker: selected", zap.String("zone_id", id))
		c.SelectZone(id)
	}
}
