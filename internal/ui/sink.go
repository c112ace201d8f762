package ui

import (
	"github.com/muurk/knob/internal/config"
	"github.com/muurk/knob/internal/manifest"
)

// Sentinel picker entry ids.
const (
	PickerBack     = "__back__"
	PickerSettings = "__settings__"
)

// PickerEntry is one row of the zone picker.
type PickerEntry struct {
	ID   string
	Name string
}

// Picker is the zone picker contents and highlighted row.
type Picker struct {
	Entries  []PickerEntry
	Selected int
}

// Sink receives everything the engine wants shown. Implementations run on a
// single UI goroutine and never call back into the engine while handling a
// call.
type Sink interface {
	// SetStatus reports whether the last poll reached the bridge.
	SetStatus(online bool)
	// SetMessage shows a transient one-line message.
	SetMessage(msg string)
	SetZoneName(name string)
	// SetNetworkStatus shows a persistent banner; "" clears it.
	SetNetworkStatus(status string)
	ShowVolumeChange(volume, step float64)

	// UpdateManifest hands over a manifest. The receiver owns it.
	UpdateManifest(m *manifest.Manifest)
	// UpdateNowPlaying carries the text lines of the legacy endpoint.
	UpdateNowPlaying(line1, line2 string)
	SetArtwork(url string)

	ShowZonePicker(p Picker)
	HideZonePicker()
	ShowSettings()

	ApplyKnobConfig(k config.Knob, charging bool)
}
