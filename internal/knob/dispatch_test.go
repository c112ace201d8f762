package knob

import (
	"context"
	"encoding/json"
	"reflect"
	"testing"

	"github.com/muurk/knob/internal/bridge"
	"github.com/muurk/knob/internal/manifest"
	"github.com/muurk/knob/internal/ui"
	"github.com/muurk/knob/internal/wire"
)

func TestInput_StringRoundTrip(t *testing.T) {
	for in, name := range inputNames {
		got, ok := ParseInput(name)
		if !ok || got != in {
			t.Errorf("ParseInput(%q) = %v, %v, want %v", name, got, ok, in)
		}
	}
	if _, ok := ParseInput("wiggle"); ok {
		t.Error("ParseInput(wiggle) ok = true")
	}
	if got := Input(99).String(); got != "unknown" {
		t.Errorf("Input(99).String() = %q, want unknown", got)
	}
}

// Rotation on a screen with an encoder goes through the encoder even when
// the interactions map names the same input.
func TestDispatch_EncoderBeatsInteractions(t *testing.T) {
	data := []byte(`{
		"version": 1,
		"sha": "e1",
		"fast": {"volume": -20, "volume_min": -80, "volume_max": 0, "volume_step": 1},
		"screens": [{
			"id": "now",
			"type": "media",
			"lines": [{"text": "Song"}],
			"encoder": {"cw": {"action": "volume_up"}, "ccw": {"action": "volume_down"}}
		}],
		"interactions": {"volume_up": "next"}
	}`)
	m, err := manifest.Parse(data)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	h := operational(t, nil)
	h.c.deliverManifest(m, true)
	h.c.volume.Update(m.Fast)

	h.c.HandleRotation(context.Background(), 1)

	if got := h.bridge.controlActions(); len(got) != 0 {
		t.Errorf("controls = %v, want none", got)
	}
	if len(h.fast.volumes) != 1 || h.fast.volumes[0] != -19 {
		t.Errorf("sent volumes = %v, want [-19]", h.fast.volumes)
	}
}

func TestDispatch_Cascade(t *testing.T) {
	encScreen := manifest.Screen{
		ID:   "enc",
		Body: manifest.Card{},
		Encoder: &manifest.Encoder{
			CW:    manifest.Action{Name: "scroll_down"},
			CCW:   manifest.Action{Name: "scroll_up"},
			Press: &manifest.Action{Name: "select", Params: json.RawMessage(`{"row":1}`)},
		},
	}
	tapScreen := manifest.Screen{
		ID:   "tap",
		Body: manifest.Media{},
		Elements: []manifest.Element{
			{Display: manifest.Display{Icon: "heart"}, OnTap: &manifest.Action{Name: "like"}, OnLongPress: &manifest.Action{Name: "unlike"}},
			{Display: manifest.Display{Icon: "blank"}},
		},
	}
	interactions := manifest.Interactions{
		{Input: "play_pause", Action: "toggle"},
		{Input: "menu", Action: "never"},
		{Input: "volume_down", Action: "volume_down"},
	}

	tests := []struct {
		name         string
		screen       string
		interactions manifest.Interactions
		event        Event
		wantControls []string
		wantCalls    []string
		wantVolume   bool
	}{
		{"encoder cw", "enc", nil, Event{Input: InputVolumeUp}, []string{"scroll_down"}, nil, false},
		{"encoder press", "enc", interactions, Event{Input: InputPlayPause}, []string{"select"}, nil, false},
		{"encoder without long press falls through", "enc", nil, Event{Input: InputLongPress}, nil, []string{"settings"}, false},
		{"element tap", "tap", nil, Event{Input: InputTap, Element: 0}, []string{"like"}, nil, false},
		{"element long tap", "tap", nil, Event{Input: InputLongTap, Element: 0}, []string{"unlike"}, nil, false},
		{"element without action", "tap", nil, Event{Input: InputTap, Element: 1}, nil, nil, false},
		{"element out of range", "tap", nil, Event{Input: InputTap, Element: 9}, nil, nil, false},
		{"menu before interactions", "tap", interactions, Event{Input: InputMenu}, nil, []string{"picker:1"}, false},
		{"interactions", "tap", interactions, Event{Input: InputPlayPause}, []string{"toggle"}, nil, false},
		{"interactions volume", "tap", interactions, Event{Input: InputVolumeDown}, nil, nil, true},
		{"default play pause", "tap", nil, Event{Input: InputPlayPause}, []string{"play_pause"}, nil, false},
		{"default next", "tap", nil, Event{Input: InputNextTrack}, []string{"next"}, nil, false},
		{"default prev", "tap", nil, Event{Input: InputPrevTrack}, []string{"prev"}, nil, false},
		{"default mute", "tap", nil, Event{Input: InputMute}, []string{"mute"}, nil, false},
		{"default volume", "tap", nil, Event{Input: InputVolumeUp}, nil, nil, true},
		{"default long press", "tap", nil, Event{Input: InputLongPress}, nil, []string{"settings"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := operational(t, nil)
			h.c.deliverManifest(&manifest.Manifest{
				SHA:          "x",
				Screens:      []manifest.Screen{encScreen, tapScreen},
				Nav:          manifest.Nav{Default: "enc"},
				Interactions: tt.interactions,
			}, true)
			if !h.c.SetCurrentScreen(tt.screen) {
				t.Fatalf("SetCurrentScreen(%q) = false", tt.screen)
			}
			h.ui.reset()

			h.c.HandleInput(context.Background(), tt.event)

			if got := h.bridge.controlActions(); !reflect.DeepEqual(got, tt.wantControls) {
				t.Errorf("controls = %v, want %v", got, tt.wantControls)
			}
			for _, call := range tt.wantCalls {
				if !h.ui.has(call) {
					t.Errorf("calls = %v, want %q", h.ui.snapshot(), call)
				}
			}
			if gotVolume := len(h.ui.volumes) > 0; gotVolume != tt.wantVolume {
				t.Errorf("volume shown = %v, want %v", gotVolume, tt.wantVolume)
			}
		})
	}
}

func TestDispatch_ControlParamsAndFailure(t *testing.T) {
	h := operational(t, nil)
	h.c.deliverManifest(&manifest.Manifest{
		SHA: "x",
		Screens: []manifest.Screen{{
			ID:   "s",
			Body: manifest.Card{},
			Elements: []manifest.Element{
				{OnTap: &manifest.Action{Name: "queue", Params: json.RawMessage(`{"item":"a"}`)}},
			},
		}},
	}, true)
	h.bridge.controlErr = bridge.NewNetworkError("down", nil)

	h.c.HandleInput(context.Background(), Event{Input: InputTap, Element: 0})

	if len(h.bridge.controls) != 1 {
		t.Fatalf("controls = %d, want 1", len(h.bridge.controls))
	}
	cr := h.bridge.controls[0]
	if cr.ZoneID != "z1" || string(cr.Params) != `{"item":"a"}` {
		t.Errorf("control = %+v, want zone z1 with params", cr)
	}
	if !h.ui.has("message:Command failed") {
		t.Errorf("calls = %v, want Command failed", h.ui.snapshot())
	}
}

func TestFailureMessage(t *testing.T) {
	tests := map[string]string{
		"play_pause": "Play/pause failed",
		"next":       "Next track failed",
		"prev":       "Previous track failed",
		"mute":       "Mute failed",
		"vol_abs":    "Volume change failed",
		"shuffle":    "Command failed",
	}
	for action, want := range tests {
		if got := failureMessage(action); got != want {
			t.Errorf("failureMessage(%q) = %q, want %q", action, got, want)
		}
	}
}

func TestDispatchTables_KeepCurrentScreen(t *testing.T) {
	var tables dispatchTables
	m := &manifest.Manifest{
		Screens: []manifest.Screen{{ID: "a", Body: manifest.Card{}}, {ID: "b", Body: manifest.Card{}}},
	}

	tables.update(m)
	if tables.current != "a" {
		t.Errorf("current = %q, want first screen when nav.default is empty", tables.current)
	}

	tables.current = "b"
	tables.update(m)
	if tables.current != "b" {
		t.Errorf("current = %q, want b kept", tables.current)
	}

	tables.update(&manifest.Manifest{Screens: []manifest.Screen{{ID: "c", Body: manifest.Card{}}}, Nav: manifest.Nav{Default: "c"}})
	if tables.current != "c" {
		t.Errorf("current = %q, want c after b disappeared", tables.current)
	}
}

func TestDispatchTables_FastOnlyKeepsTables(t *testing.T) {
	h := operational(t, nil)
	h.c.deliverManifest(&manifest.Manifest{
		SHA:          "x",
		Screens:      []manifest.Screen{{ID: "s", Body: manifest.Card{}}},
		Interactions: manifest.Interactions{{Input: "mute", Action: "silence"}},
	}, true)

	h.c.deliverManifest(manifest.FastOnly("x", manifest.FastState{}), false)
	h.c.HandleInput(context.Background(), Event{Input: InputMute})

	if got := h.bridge.controlActions(); !reflect.DeepEqual(got, []string{"silence"}) {
		t.Errorf("controls = %v, want [silence]", got)
	}
}

func TestDispatch_InteractionsWithoutScreens(t *testing.T) {
	h := operational(t, nil)
	h.bridge.manifest = &manifest.Manifest{
		SHA:          "aa",
		Fast:         manifest.FastState{VolumeMin: -80, VolumeStep: 1},
		Interactions: manifest.Interactions{{Input: "play_pause", Action: "stop"}},
	}

	if !h.c.PollOnce(context.Background()) {
		t.Fatal("PollOnce() = false")
	}
	h.c.HandleInput(context.Background(), Event{Input: InputPlayPause})

	if got := h.bridge.controlActions(); !reflect.DeepEqual(got, []string{"stop"}) {
		t.Errorf("controls = %v, want [stop]", got)
	}

	// A fast-only poll keeps the cached map.
	h.fast.resp = &wire.Response{SHA: "aa", VolumeMin: -80, VolumeStep: 1}
	if !h.c.PollOnce(context.Background()) {
		t.Fatal("second PollOnce() = false")
	}
	if h.bridge.manifestCalls != 1 {
		t.Fatalf("manifest calls = %d, want 1", h.bridge.manifestCalls)
	}
	h.c.HandleInput(context.Background(), Event{Input: InputPlayPause})

	if got := h.bridge.controlActions(); !reflect.DeepEqual(got, []string{"stop", "stop"}) {
		t.Errorf("controls = %v, want [stop stop]", got)
	}
}

func TestPicker(t *testing.T) {
	tests := []struct {
		name      string
		events    []Event
		wantZone  string
		wantCalls []string
		wantSaved bool
	}{
		{
			name:      "select next zone",
			events:    []Event{{Input: InputMenu}, {Input: InputVolumeUp}, {Input: InputPlayPause}},
			wantZone:  "z2",
			wantCalls: []string{"picker:1", "picker:2", "hide_picker", "zone:Office", "message:Loading zone..."},
			wantSaved: true,
		},
		{
			name:      "same zone is a no-op",
			events:    []Event{{Input: InputMenu}, {Input: InputPlayPause}},
			wantZone:  "z1",
			wantCalls: []string{"picker:1", "hide_picker"},
		},
		{
			name:      "back",
			events:    []Event{{Input: InputMenu}, {Input: InputVolumeDown}, {Input: InputVolumeDown}, {Input: InputPlayPause}},
			wantZone:  "z1",
			wantCalls: []string{"picker:0", "hide_picker"},
		},
		{
			name:      "settings",
			events:    []Event{{Input: InputMenu}, {Input: InputVolumeUp}, {Input: InputVolumeUp}, {Input: InputVolumeUp}, {Input: InputPlayPause}},
			wantZone:  "z1",
			wantCalls: []string{"picker:3", "hide_picker", "settings"},
		},
		{
			name:      "menu closes",
			events:    []Event{{Input: InputMenu}, {Input: InputMenu}},
			wantZone:  "z1",
			wantCalls: []string{"hide_picker"},
		},
		{
			name:      "tap selects row",
			events:    []Event{{Input: InputMenu}, {Input: InputTap, Element: 2}},
			wantZone:  "z2",
			wantCalls: []string{"hide_picker", "zone:Office"},
			wantSaved: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := operational(t, nil)

			for _, ev := range tt.events {
				h.c.HandleInput(context.Background(), ev)
			}

			if got := h.c.Config().ZoneID; got != tt.wantZone {
				t.Errorf("ZoneID = %q, want %q", got, tt.wantZone)
			}
			for _, call := range tt.wantCalls {
				if !h.ui.has(call) {
					t.Errorf("calls = %v, want %q", h.ui.snapshot(), call)
				}
			}
			if h.c.PickerVisible() {
				t.Error("picker still visible")
			}
			if saved := h.store.last(); tt.wantSaved && (saved == nil || saved.ZoneID != tt.wantZone) {
				t.Errorf("saved = %+v, want zone %q", saved, tt.wantZone)
			}
			if got := h.bridge.controlActions(); len(got) != 0 {
				t.Errorf("controls = %v, want none while the picker is open", got)
			}
		})
	}
}

func TestPicker_Entries(t *testing.T) {
	h := operational(t, nil)

	h.c.HandleInput(context.Background(), Event{Input: InputMenu})

	want := []ui.PickerEntry{
		{ID: ui.PickerBack, Name: "Back"},
		{ID: "z1", Name: "Kitchen"},
		{ID: "z2", Name: "Office"},
		{ID: ui.PickerSettings, Name: "Settings"},
	}
	if !reflect.DeepEqual(h.ui.picker.Entries, want) {
		t.Errorf("entries = %+v, want %+v", h.ui.picker.Entries, want)
	}
	if h.ui.picker.Selected != 1 {
		t.Errorf("Selected = %d, want 1", h.ui.picker.Selected)
	}

	// Rotation bursts scroll and clamp at the ends.
	h.c.HandleRotation(context.Background(), 10)
	if h.ui.picker.Selected != 3 {
		t.Errorf("Selected = %d, want 3 after clamping", h.ui.picker.Selected)
	}
	if len(h.ui.volumes) != 0 {
		t.Error("rotation changed volume while the picker is open")
	}

	h.c.ClosePicker()
	if h.c.PickerVisible() {
		t.Error("ClosePicker() left picker visible")
	}
}

func TestSelectZone_FromConnected(t *testing.T) {
	h := operational(t, nil)
	h.c.SetNetworkReady(false)
	h.c.SetNetworkReady(true)

	if !h.c.SelectZone("z2") {
		t.Fatal("SelectZone(z2) = false")
	}
	if got := h.c.State(); got != StateOperational {
		t.Errorf("State() = %v, want %v", got, StateOperational)
	}
	if h.c.SelectZone("missing") {
		t.Error("SelectZone(missing) = true")
	}
}
