package knob

import (
	"context"
	"fmt"
	"time"

	"github.com/muurk/knob/internal/bridge"
	"github.com/muurk/knob/internal/config"
	"github.com/muurk/knob/internal/discovery"
	"github.com/muurk/knob/internal/fastpath"
	"github.com/muurk/knob/internal/manifest"
	"github.com/muurk/knob/internal/ui"
	"github.com/muurk/knob/internal/wire"
)

// Bridge is the HTTP side of a bridge. *bridge.Client implements it.
type Bridge interface {
	FetchManifest(ctx context.Context, zoneID, sha string) (*manifest.Manifest, error)
	Zones(ctx context.Context) ([]bridge.Zone, error)
	NowPlaying(ctx context.Context, zoneID string, battery bridge.Battery) (*bridge.NowPlaying, error)
	Control(ctx context.Context, cr bridge.ControlRequest) error
	KnobConfig(ctx context.Context) (*bridge.KnobConfig, error)
	ArtworkURL(zoneID string, width, height, clipRadius int) string
}

// BridgeFactory returns a Bridge for a base URL.
type BridgeFactory func(baseURL string) Bridge

// ClientFactory adapts a bridge.Client template into a BridgeFactory. Every
// returned client shares the template's HTTP client and identity headers.
func ClientFactory(template *bridge.Client) BridgeFactory {
	return func(baseURL string) Bridge {
		return template.WithBaseURL(baseURL)
	}
}

// FastPath is the UDP side of a bridge. *fastpath.Transport implements it.
type FastPath interface {
	Poll(ctx context.Context, ep fastpath.Endpoint, sha, zoneID string) (*wire.Response, error)
	SendVolume(ctx context.Context, ep fastpath.Endpoint, zoneID string, value float64) error
}

// Resolver finds a bridge when none is configured. *discovery.Resolver
// implements it.
type Resolver interface {
	Resolve(ctx context.Context, current string) (discovery.Result, bool)
}

// ConfigStore persists the device config. *config.Store implements it.
type ConfigStore interface {
	Save(cfg *config.Config) error
}

// Mode selects the endpoint polled for playback state.
type Mode int

const (
	// ModeManifest polls the UDP fast path and /knob/manifest.
	ModeManifest Mode = iota
	// ModeNowPlaying polls the legacy /now_playing endpoint.
	ModeNowPlaying
)

func (m Mode) String() string {
	if m == ModeNowPlaying {
		return "now_playing"
	}
	return "manifest"
}

// ParseMode parses "manifest" or "now_playing". Empty means manifest.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "manifest":
		return ModeManifest, nil
	case "now_playing", "legacy":
		return ModeNowPlaying, nil
	default:
		return ModeManifest, fmt.Errorf("unknown mode %q", s)
	}
}

// Intervals are the poll intervals used by Run.
type Intervals struct {
	Charging    time.Duration // awake and charging
	Battery     time.Duration // awake on battery
	Sleeping    time.Duration // display asleep
	BridgeError time.Duration // bridge unreachable past the threshold
}

// DefaultIntervals returns the stock poll intervals.
func DefaultIntervals() Intervals {
	return Intervals{
		Charging:    2 * time.Second,
		Battery:     5 * time.Second,
		Sleeping:    30 * time.Second,
		BridgeError: 10 * time.Second,
	}
}

const (
	// BridgeFailThreshold is the number of failed polls before the knob
	// shows recovery guidance.
	BridgeFailThreshold = 5

	// DiscoveryFailThreshold is the number of failed discovery passes before
	// the knob shows recovery guidance.
	DiscoveryFailThreshold = 10

	// DiscoveryRecheck is how often discovery runs after a verified bridge.
	DiscoveryRecheck = time.Hour

	// ArtSize and ArtClipRadius size the artwork for the round display.
	ArtSize       = 336
	ArtClipRadius = 171
)

// Options configures a Controller. UI, Bridge and Config are required.
type Options struct {
	UI     ui.Sink
	Bridge BridgeFactory
	Store  ConfigStore

	// FastPath and Resolver are optional. Without FastPath every poll uses
	// HTTP; without Resolver the knob waits for a configured bridge.
	FastPath FastPath
	Resolver Resolver

	// Power defaults to a charging host with the display awake.
	Power Power

	// Config is the persisted config the controller starts from.
	Config *config.Config

	Mode      Mode
	Intervals Intervals

	// Now is the clock, replaceable in tests.
	Now func() time.Time
}
