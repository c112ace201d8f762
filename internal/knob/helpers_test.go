package knob

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/muurk/knob/internal/bridge"
	"github.com/muurk/knob/internal/config"
	"github.com/muurk/knob/internal/discovery"
	"github.com/muurk/knob/internal/fastpath"
	"github.com/muurk/knob/internal/manifest"
	"github.com/muurk/knob/internal/ui"
	"github.com/muurk/knob/internal/wire"
)

// recorder is a ui.Sink that records every call as a short string.
type recorder struct {
	mu        sync.Mutex
	calls     []string
	volumes   []float64
	manifests []*manifest.Manifest
	picker    ui.Picker
}

func (r *recorder) add(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, fmt.Sprintf(format, args...))
}

func (r *recorder) SetStatus(online bool)          { r.add("status:%t", online) }
func (r *recorder) SetMessage(msg string)          { r.add("message:%s", msg) }
func (r *recorder) SetZoneName(name string)        { r.add("zone:%s", name) }
func (r *recorder) SetNetworkStatus(status string) { r.add("network:%s", status) }
func (r *recorder) ShowVolumeChange(volume, step float64) {
	r.mu.Lock()
	r.volumes = append(r.volumes, volume)
	r.mu.Unlock()
	r.add("volume:%g", volume)
}
func (r *recorder) UpdateManifest(m *manifest.Manifest) {
	r.mu.Lock()
	r.manifests = append(r.manifests, m)
	r.mu.Unlock()
	r.add("manifest:%s", m.SHA)
}
func (r *recorder) UpdateNowPlaying(line1, line2 string) { r.add("lines:%s|%s", line1, line2) }
func (r *recorder) SetArtwork(url string)                { r.add("artwork:%s", url) }
func (r *recorder) ShowZonePicker(p ui.Picker) {
	r.mu.Lock()
	r.picker = p
	r.mu.Unlock()
	r.add("picker:%d", p.Selected)
}
func (r *recorder) HideZonePicker() { r.add("hide_picker") }
func (r *recorder) ShowSettings()   { r.add("settings") }
func (r *recorder) ApplyKnobConfig(k config.Knob, charging bool) {
	r.add("knob_config:%s:%t", k.Name, charging)
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
	r.volumes = nil
	r.manifests = nil
}

func (r *recorder) has(call string) bool {
	for _, c := range r.snapshot() {
		if c == call {
			return true
		}
	}
	return false
}

func (r *recorder) withPrefix(prefix string) []string {
	var out []string
	for _, c := range r.snapshot() {
		if strings.HasPrefix(c, prefix) {
			out = append(out, c)
		}
	}
	return out
}

func (r *recorder) lastManifest() *manifest.Manifest {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.manifests) == 0 {
		return nil
	}
	return r.manifests[len(r.manifests)-1]
}

// fakeBridge is a scripted Bridge shared by every base URL.
type fakeBridge struct {
	mu sync.Mutex

	manifest    *manifest.Manifest
	manifestErr error
	zones       []bridge.Zone
	zonesErr    error
	nowPlaying  *bridge.NowPlaying
	knobConfig  *bridge.KnobConfig
	controlErr  error

	bases         []string
	manifestCalls int
	zonesCalls    int
	configCalls   int
	controls      []bridge.ControlRequest
	shas          []string
}

func (f *fakeBridge) factory() BridgeFactory {
	return func(base string) Bridge {
		f.mu.Lock()
		f.bases = append(f.bases, base)
		f.mu.Unlock()
		return f
	}
}

func (f *fakeBridge) FetchManifest(_ context.Context, zoneID, sha string) (*manifest.Manifest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.manifestCalls++
	f.shas = append(f.shas, sha)
	if f.manifestErr != nil {
		return nil, f.manifestErr
	}
	if f.manifest == nil {
		return nil, bridge.NewParseError("no manifest", nil)
	}
	cp := *f.manifest
	cp.Screens = append([]manifest.Screen(nil), f.manifest.Screens...)
	return &cp, nil
}

func (f *fakeBridge) Zones(context.Context) ([]bridge.Zone, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.zonesCalls++
	if f.zonesErr != nil {
		return nil, f.zonesErr
	}
	return append([]bridge.Zone(nil), f.zones...), nil
}

func (f *fakeBridge) NowPlaying(context.Context, string, bridge.Battery) (*bridge.NowPlaying, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.nowPlaying == nil {
		return nil, bridge.NewNetworkError("down", nil)
	}
	cp := *f.nowPlaying
	return &cp, nil
}

func (f *fakeBridge) Control(_ context.Context, cr bridge.ControlRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.controls = append(f.controls, cr)
	return f.controlErr
}

func (f *fakeBridge) KnobConfig(context.Context) (*bridge.KnobConfig, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.configCalls++
	if f.knobConfig == nil {
		return nil, bridge.NewHTTPError(404, "no config")
	}
	return f.knobConfig, nil
}

func (f *fakeBridge) ArtworkURL(zoneID string, width, height, clipRadius int) string {
	return fmt.Sprintf("art/%s/%d", zoneID, width)
}

func (f *fakeBridge) controlActions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, cr := range f.controls {
		out = append(out, cr.Action)
	}
	return out
}

// fakeFast is a scripted FastPath.
type fakeFast struct {
	mu       sync.Mutex
	resp     *wire.Response
	pollErr  error
	sendErr  error
	polls    int
	volumes  []float64
	lastSHA  string
	lastZone string
}

func (f *fakeFast) Poll(_ context.Context, _ fastpath.Endpoint, sha, zoneID string) (*wire.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.polls++
	f.lastSHA, f.lastZone = sha, zoneID
	if f.pollErr != nil {
		return nil, f.pollErr
	}
	if f.resp == nil {
		return nil, fastpath.ErrUnavailable
	}
	cp := *f.resp
	return &cp, nil
}

func (f *fakeFast) SendVolume(_ context.Context, _ fastpath.Endpoint, _ string, value float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.volumes = append(f.volumes, value)
	return nil
}

// fakeBroadcaster answers discovery broadcasts with a fixed IP.
type fakeBroadcaster struct {
	ip net.IP
}

func (f fakeBroadcaster) Broadcast(context.Context, int) (net.IP, error) {
	if f.ip == nil {
		return nil, discovery.ErrNoBridge
	}
	return f.ip, nil
}

// memStore keeps saved configs in memory.
type memStore struct {
	mu    sync.Mutex
	saved []*config.Config
}

func (s *memStore) Save(cfg *config.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, cfg.Clone())
	return nil
}

func (s *memStore) last() *config.Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.saved) == 0 {
		return nil
	}
	return s.saved[len(s.saved)-1]
}

type harness struct {
	c      *Controller
	ui     *recorder
	bridge *fakeBridge
	fast   *fakeFast
	store  *memStore
	power  *StaticPower
	clock  *time.Time
}

func newHarness(t *testing.T, cfg *config.Config, mutate func(*Options)) *harness {
	t.Helper()
	if cfg == nil {
		cfg = config.New()
	}
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	h := &harness{
		ui:     &recorder{},
		bridge: &fakeBridge{},
		fast:   &fakeFast{},
		store:  &memStore{},
		power:  NewStaticPower(),
		clock:  &now,
	}
	opts := Options{
		UI:       h.ui,
		Bridge:   h.bridge.factory(),
		Store:    h.store,
		FastPath: h.fast,
		Power:    h.power,
		Config:   cfg,
		Now:      func() time.Time { return *h.clock },
	}
	if mutate != nil {
		mutate(&opts)
	}
	c, err := New(opts)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	h.c = c
	return h
}

// operational returns a harness with a configured bridge and zone, already
// Operational.
func operational(t *testing.T, mutate func(*Options)) *harness {
	t.Helper()
	cfg := config.New()
	cfg.BridgeBase = "http://192.168.1.10:8088"
	cfg.ZoneID = "z1"
	h := newHarness(t, cfg, mutate)
	h.bridge.zones = []bridge.Zone{{ID: "z1", Name: "Kitchen"}, {ID: "z2", Name: "Office"}}
	h.c.SetNetworkReady(true)
	if !h.c.refreshZones(context.Background(), true) {
		t.Fatal("refreshZones() = false, want true")
	}
	if got := h.c.State(); got != StateOperational {
		t.Fatalf("State() = %v, want %v", got, StateOperational)
	}
	h.ui.reset()
	select {
	case <-h.c.trigger:
	default:
	}
	return h
}

func mediaManifest(sha string) *manifest.Manifest {
	return &manifest.Manifest{
		Version: 1,
		SHA:     sha,
		Fast: manifest.FastState{
			IsPlaying:  true,
			Volume:     -30,
			VolumeMin:  -80,
			VolumeMax:  0,
			VolumeStep: 1,
		},
		Screens: []manifest.Screen{
			{ID: "now", Body: manifest.Media{ImageURL: "/img/1"}},
		},
		Nav: manifest.Nav{Order: []string{"now"}, Default: "now"},
	}
}
