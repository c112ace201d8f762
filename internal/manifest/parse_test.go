package manifest

import (
	"errors"
	"strings"
	"testing"
)

const fullManifest = `{
  "version": 2,
  "sha": "a1b2c3d4",
  "fast": {
    "zone_id": "zone-1",
    "is_playing": true,
    "volume": -20,
    "volume_min": -80,
    "volume_max": 0,
    "volume_step": 0.5,
    "volume_type": "db",
    "seek_position": 42,
    "length": 300,
    "transport": {"play": false, "pause": true, "next": true, "prev": false}
  },
  "screens": [
    {
      "type": "media",
      "id": "now_playing",
      "image_url": "http://bridge/art.png",
      "image_key": "k1",
      "background_color": "#102030",
      "lines": [
        {"text": "Song", "style": "title"},
        {"text": "Artist", "style": "subtitle"},
        {"text": "Album"}
      ],
      "controls": ["prev", "play", "next"],
      "elements": [
        {"display": {"icon": "skip_previous"}, "on_tap": {"action": "previous"}},
        {"display": {"icon": "play_arrow", "active": true}, "on_tap": {"action": "toggle_playback", "params": {"a": 1}}},
        {"display": {"label": "Next"}, "on_long_press": {"action": "seek", "params": null}}
      ],
      "encoder": {"cw": {"action": "volume_up"}, "ccw": {"action": "volume_down"}, "press": {"action": "toggle_playback"}}
    },
    {"type": "hologram", "id": "future"},
    {
      "type": "list",
      "id": "zones",
      "title": "Zones",
      "items": [
        {"id": "zone-1", "label": "Kitchen", "selected": false},
        {"id": "zone-2", "label": "Office", "sublabel": "idle", "selected": true}
      ]
    },
    {"type": "progress", "id": "ota", "label": "Updating", "progress": 0.25},
    {"type": "status", "id": "err", "message": "Offline", "icon": "wifi_off"}
  ],
  "nav": {"order": ["now_playing", "zones"]},
  "interactions": {"encoder_cw": "volume_up", "encoder_press": "play_pause", "ignored": 5, "menu": "zones"}
}`

func TestParse(t *testing.T) {
	m, err := Parse([]byte(fullManifest))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if m.Version != 2 {
		t.Errorf("Version = %d, want 2", m.Version)
	}
	if m.SHA != "a1b2c3d4" {
		t.Errorf("SHA = %q, want a1b2c3d4", m.SHA)
	}

	want := FastState{
		ZoneID:       "zone-1",
		IsPlaying:    true,
		Volume:       -20,
		VolumeMin:    -80,
		VolumeMax:    0,
		VolumeStep:   0.5,
		VolumeType:   "db",
		SeekPosition: 42,
		Length:       300,
		Transport:    Transport{Pause: true, Next: true},
	}
	if m.Fast != want {
		t.Errorf("Fast = %+v, want %+v", m.Fast, want)
	}

	// The unknown "hologram" screen is skipped.
	if len(m.Screens) != MaxScreens {
		t.Fatalf("len(Screens) = %d, want %d", len(m.Screens), MaxScreens)
	}
	kinds := []ScreenKind{KindMedia, KindList, KindProgress, KindStatus}
	for i, k := range kinds {
		if got := m.Screens[i].Kind(); got != k {
			t.Errorf("Screens[%d].Kind() = %v, want %v", i, got, k)
		}
	}

	media, ok := m.Screens[0].Body.(Media)
	if !ok {
		t.Fatalf("Screens[0].Body is %T, want Media", m.Screens[0].Body)
	}
	if media.ImageURL != "http://bridge/art.png" || media.BackgroundColor != "#102030" {
		t.Errorf("media = %+v", media)
	}
	if len(media.Lines) != 3 || media.Lines[0].Style != StyleTitle || media.Lines[1].Style != StyleSubtitle || media.Lines[2].Style != StyleDetail {
		t.Errorf("media lines = %+v", media.Lines)
	}

	s := m.Screens[0]
	if len(s.Controls) != 3 {
		t.Errorf("Controls = %v, want 3 entries", s.Controls)
	}
	if len(s.Elements) != 3 {
		t.Fatalf("len(Elements) = %d, want 3", len(s.Elements))
	}
	if s.Elements[1].OnTap == nil || string(s.Elements[1].OnTap.Params) != `{"a":1}` {
		t.Errorf("element 1 on_tap = %+v", s.Elements[1].OnTap)
	}
	if !s.Elements[1].Display.Active {
		t.Error("element 1 should be active")
	}
	if s.Elements[2].OnTap != nil {
		t.Error("element 2 should have no on_tap")
	}
	if s.Elements[2].OnLongPress == nil || s.Elements[2].OnLongPress.Params != nil {
		t.Errorf("element 2 on_long_press = %+v, want action without params", s.Elements[2].OnLongPress)
	}
	if s.Encoder == nil || s.Encoder.CW.Name != "volume_up" || s.Encoder.CCW.Name != "volume_down" {
		t.Fatalf("Encoder = %+v", s.Encoder)
	}
	if s.Encoder.Press == nil || s.Encoder.LongPress != nil {
		t.Errorf("Encoder press = %v, long_press = %v", s.Encoder.Press, s.Encoder.LongPress)
	}

	list := m.Screens[1].Body.(List)
	if len(list.Items) != 2 || !list.Items[1].Selected || list.Items[1].Sublabel != "idle" {
		t.Errorf("list = %+v", list)
	}

	if p := m.Screens[2].Body.(Progress); p.Progress != 0.25 {
		t.Errorf("progress = %v, want 0.25", p.Progress)
	}

	if m.Nav.Default != "now_playing" {
		t.Errorf("Nav.Default = %q, want first order entry", m.Nav.Default)
	}

	wantInteractions := Interactions{
		{Input: "encoder_cw", Action: "volume_up"},
		{Input: "encoder_press", Action: "play_pause"},
		{Input: "menu", Action: "zones"},
	}
	if len(m.Interactions) != len(wantInteractions) {
		t.Fatalf("Interactions = %v, want %v", m.Interactions, wantInteractions)
	}
	for i := range wantInteractions {
		if m.Interactions[i] != wantInteractions[i] {
			t.Errorf("Interactions[%d] = %v, want %v", i, m.Interactions[i], wantInteractions[i])
		}
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want error
	}{
		{"empty", "", ErrEmpty},
		{"whitespace", "  \n", ErrEmpty},
		{"not json", "{nope", ErrInvalidJSON},
		{"array root", "[]", ErrInvalidJSON},
		{"null root", "null", ErrInvalidJSON},
		{"missing fast", `{"sha":"abc","screens":[]}`, ErrMissingFast},
		{"fast not object", `{"fast":[1,2]}`, ErrMissingFast},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Parse([]byte(tt.in))
			if !errors.Is(err, tt.want) {
				t.Fatalf("Parse() error = %v, want %v", err, tt.want)
			}
			if m != nil {
				t.Errorf("Parse() returned %+v on error, want nil", m)
			}
		})
	}
}

func TestParseDefaults(t *testing.T) {
	m, err := Parse([]byte(`{"fast":{"volume":"loud","is_playing":"yes"},"nav":{"default":"x"}}`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if m.Fast.VolumeStep != 1 {
		t.Errorf("VolumeStep = %v, want default 1", m.Fast.VolumeStep)
	}
	if m.Fast.Volume != 0 || m.Fast.IsPlaying {
		t.Errorf("wrongly typed fields should be ignored, got %+v", m.Fast)
	}
	if m.Nav.Default != "x" {
		t.Errorf("Nav.Default = %q, want x", m.Nav.Default)
	}
	if m.Interactions != nil {
		t.Errorf("Interactions = %v, want nil", m.Interactions)
	}
}

func TestParseBounds(t *testing.T) {
	long := strings.Repeat("é", 100) // 200 bytes
	var items []string
	for i := 0; i < MaxListItems+4; i++ {
		items = append(items, `{"id":"z","label":"`+long+`"}`)
	}
	doc := `{"sha":"0123456789abcdef","fast":{"zone_id":"` + strings.Repeat("z", 100) + `"},` +
		`"screens":[{"type":"list","id":"` + strings.Repeat("i", 40) + `","items":[` + strings.Join(items, ",") + `]}]}`

	m, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if m.SHA != "01234567" {
		t.Errorf("SHA = %q, want 8 characters", m.SHA)
	}
	if len(m.Fast.ZoneID) != MaxZoneID {
		t.Errorf("len(ZoneID) = %d, want %d", len(m.Fast.ZoneID), MaxZoneID)
	}
	if len(m.Screens[0].ID) != MaxID {
		t.Errorf("len(ID) = %d, want %d", len(m.Screens[0].ID), MaxID)
	}
	list := m.Screens[0].Body.(List)
	if len(list.Items) != MaxListItems {
		t.Errorf("len(Items) = %d, want %d", len(list.Items), MaxListItems)
	}
	label := list.Items[0].Label
	if len(label) > MaxText || len(label)%2 != 0 {
		t.Errorf("label length %d should be cut on a rune boundary within %d bytes", len(label), MaxText)
	}
}

func TestParseOversizedParams(t *testing.T) {
	big := strings.Repeat("x", MaxParamsJSON)
	doc := `{"fast":{},"screens":[{"type":"card","id":"c","encoder":{"cw":{"action":"jump","params":{"v":"` + big + `"}}}}]}`
	m, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	cw := m.Screens[0].Encoder.CW
	if cw.Name != "jump" || cw.Params != nil {
		t.Errorf("CW = %+v, want name kept and params dropped", cw)
	}
}

func TestPartialParsersAgree(t *testing.T) {
	docs := []string{
		fullManifest,
		`{"fast":{}}`,
		`{"sha":"ffff","fast":{"volume":3.5,"volume_step":2,"transport":{"next":true}}}`,
		`{"sha":123,"fast":{"seek_position":-1,"length":0}}`,
	}

	for i, doc := range docs {
		full, err := Parse([]byte(doc))
		if err != nil {
			t.Fatalf("doc %d: Parse() error = %v", i, err)
		}

		fast, err := ParseFastOnly([]byte(doc))
		if err != nil {
			t.Fatalf("doc %d: ParseFastOnly() error = %v", i, err)
		}
		if fast != full.Fast {
			t.Errorf("doc %d: ParseFastOnly() = %+v, Parse().Fast = %+v", i, fast, full.Fast)
		}

		sha, err := ParseSHAOnly([]byte(doc))
		if err != nil {
			t.Fatalf("doc %d: ParseSHAOnly() error = %v", i, err)
		}
		if sha != full.SHA {
			t.Errorf("doc %d: ParseSHAOnly() = %q, Parse().SHA = %q", i, sha, full.SHA)
		}
	}
}

func TestMarkSelectedZone(t *testing.T) {
	m, err := Parse([]byte(fullManifest))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	m.MarkSelectedZone("zone-1")

	s, ok := m.Screen(ZonesScreenID)
	if !ok {
		t.Fatal("zones screen not found")
	}
	list := s.Body.(List)
	if !list.Items[0].Selected || list.Items[1].Selected {
		t.Errorf("items = %+v, want only zone-1 selected", list.Items)
	}
}

func TestInteractionsLookup(t *testing.T) {
	in := Interactions{{Input: "encoder_cw", Action: "volume_up"}}
	if got, ok := in.Lookup("encoder_cw"); !ok || got != "volume_up" {
		t.Errorf("Lookup(encoder_cw) = %q, %v", got, ok)
	}
	if _, ok := in.Lookup("menu"); ok {
		t.Error("Lookup(menu) should miss")
	}
}

func TestFastOnly(t *testing.T) {
	fast := FastState{Volume: -10, VolumeStep: 1}
	m := FastOnly("abcdef0123", fast)
	if m.SHA != "abcdef01" || len(m.Screens) != 0 || m.Fast != fast || m.Version != 1 {
		t.Errorf("FastOnly() = %+v", m)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"hello", 10, "hello"},
		{"hello", 3, "hel"},
		{"héllo", 2, "h"},
		{"abc", 0, ""},
	}
	for _, tt := range tests {
		if got := Truncate(tt.in, tt.max); got != tt.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}
