package knob

import (
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/knob/internal/bridge"
	"github.com/muurk/knob/internal/config"
	"github.com/muurk/knob/internal/logging"
	"github.com/muurk/knob/internal/ui"
)

// Placeholder shown in the zone slot until a zone is chosen.
const noZoneLabel = "Tap here to select zone"

// Controller is the knob's protocol engine. All mutable state sits behind mu;
// methods copy what they need and release mu before any network or UI call.
type Controller struct {
	ui        ui.Sink
	bridges   BridgeFactory
	store     ConfigStore
	fast      FastPath
	resolver  Resolver
	power     Power
	mode      Mode
	intervals Intervals
	now       func() time.Time

	trigger chan struct{}

	mu  sync.Mutex
	cfg *config.Config

	// fallbackBase is a static bridge URL used for this session only.
	fallbackBase string

	state        DeviceState
	networkReady bool
	deviceIP     string

	zones        []bridge.Zone
	zoneLabel    string
	zoneResolved bool

	verified       bool
	lastDiscovery  time.Time
	discoveryFails int
	bridgeFails    int
	lastNetOK      bool

	lastIsPlaying bool
	lastCharging  bool

	manifestSHA  string
	zonesSHA     string
	lastImageKey string
	forceArtwork bool

	volume VolumeCache
	tables dispatchTables
	picker pickerState
}

// New creates a Controller in the Boot state.
func New(opts Options) (*Controller, error) {
	if opts.UI == nil {
		return nil, errors.New("knob: UI sink is required")
	}
	if opts.Bridge == nil {
		return nil, errors.New("knob: bridge factory is required")
	}
	if opts.Config == nil {
		return nil, errors.New("knob: config is required")
	}

	c := &Controller{
		ui:           opts.UI,
		bridges:      opts.Bridge,
		store:        opts.Store,
		fast:         opts.FastPath,
		resolver:     opts.Resolver,
		power:        opts.Power,
		mode:         opts.Mode,
		intervals:    opts.Intervals,
		now:          opts.Now,
		trigger:      make(chan struct{}, 1),
		cfg:          opts.Config.Clone(),
		state:        StateBoot,
		zoneLabel:    noZoneLabel,
		lastCharging: true,
		volume:       DefaultVolumeCache(),
	}
	if c.power == nil {
		c.power = NewStaticPower()
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.intervals == (Intervals{}) {
		c.intervals = DefaultIntervals()
	}
	if c.cfg.ZoneID != "" {
		c.zoneLabel = c.cfg.ZoneID
	}
	return c, nil
}

// State returns the current device state.
func (c *Controller) State() DeviceState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Config returns a copy of the persisted config.
func (c *Controller) Config() *config.Config {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg.Clone()
}

// Zones returns a copy of the last zone list.
func (c *Controller) Zones() []bridge.Zone {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]bridge.Zone(nil), c.zones...)
}

// ZoneLabel returns the name shown for the current zone.
func (c *Controller) ZoneLabel() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.zoneLabel
}

// Volume returns the cached volume.
func (c *Controller) Volume() VolumeCache {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.volume
}

// BridgeURL returns the bridge base URL in use, if any.
func (c *Controller) BridgeURL() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	base := c.baseURL()
	return base, base != ""
}

// BridgeRetries returns the failed poll count and its threshold.
func (c *Controller) BridgeRetries() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bridgeFails, BridgeFailThreshold
}

// BridgeConnected reports whether the last poll succeeded.
func (c *Controller) BridgeConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastNetOK
}

// BridgeFromMDNS reports whether the bridge was discovered automatically.
func (c *Controller) BridgeFromMDNS() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg.BridgeFromMDNS
}

// ReadyForArtMode reports whether zones have been loaded.
func (c *Controller) ReadyForArtMode() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.zones) > 0
}

// ArtworkURL returns the artwork URL for the current zone. ok is false when
// no bridge or zone is known.
func (c *Controller) ArtworkURL(width, height, clipRadius int) (string, bool) {
	c.mu.Lock()
	base, zoneID := c.baseURL(), c.cfg.ZoneID
	c.mu.Unlock()
	if base == "" || zoneID == "" {
		return "", false
	}
	return c.bridgeFor(base).ArtworkURL(zoneID, width, height, clipRadius), true
}

// SetDeviceIP records the knob's own address for recovery messages.
func (c *Controller) SetDeviceIP(ip string) {
	c.mu.Lock()
	c.deviceIP = ip
	c.mu.Unlock()
}

// SetNetworkConnecting reports that the network is being brought up.
func (c *Controller) SetNetworkConnecting() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateBoot {
		c.setState(StateConnecting, "network connecting")
	}
}

// SetNetworkReady reports a change in network readiness.
//
// On ready, an automatically discovered bridge is forgotten so a knob moved to
// another network finds the local bridge. Operational is kept across a
// transient reconnect.
func (c *Controller) SetNetworkReady(ready bool) {
	var status string

	c.mu.Lock()
	c.networkReady = ready
	if ready {
		if c.cfg.BridgeFromMDNS || c.fallbackBase != "" {
			logging.Info("Clearing discovered bridge for fresh discovery",
				zap.String("bridge_base", c.baseURL()),
			)
			c.cfg.BridgeBase = ""
			c.cfg.BridgeFromMDNS = false
			c.fallbackBase = ""
			c.zoneResolved = false
			c.verified = false
			c.manifestSHA = ""
		}
		if c.state != StateOperational {
			if c.state == StateReconnecting {
				c.zoneResolved = false
			}
			c.setState(StateConnected, "network ready")
			status = "Loading zones..."
		}
	} else {
		next := StateBoot
		if c.state == StateOperational {
			next = StateReconnecting
			status = "Reconnecting..."
		}
		c.setState(next, "network lost")
	}
	c.mu.Unlock()

	if status != "" {
		c.ui.SetNetworkStatus(status)
	}
	if ready {
		c.PollNow()
	}
}

// PollNow cuts the current poll wait short.
func (c *Controller) PollNow() {
	select {
	case c.trigger <- struct{}{}:
	default:
	}
}

// ApplyExternalConfig merges a config written by someone else, such as the
// setup portal, and polls at once when the bridge or zone changed.
func (c *Controller) ApplyExternalConfig(next *config.Config) {
	if next == nil {
		return
	}

	c.mu.Lock()
	changed := false
	if next.BridgeBase != c.cfg.BridgeBase {
		logging.Info("Bridge changed externally",
			zap.String("from", c.cfg.BridgeBase),
			zap.String("to", next.BridgeBase),
		)
		c.cfg.BridgeBase = next.BridgeBase
		c.cfg.BridgeFromMDNS = next.BridgeFromMDNS
		c.fallbackBase = ""
		c.verified = false
		c.zoneResolved = false
		c.manifestSHA = ""
		changed = true
	}
	if next.ZoneID != c.cfg.ZoneID {
		logging.Info("Zone changed externally", zap.String("zone_id", next.ZoneID))
		c.cfg.ZoneID = next.ZoneID
		c.zoneResolved = false
		c.forceArtwork = true
		c.manifestSHA = ""
		changed = true
	}
	knobChanged := next.Knob != c.cfg.Knob
	if knobChanged {
		c.cfg.Knob = next.Knob
		c.cfg.ConfigSHA = next.ConfigSHA
	}
	knob := c.cfg.Knob
	c.mu.Unlock()

	if knobChanged {
		c.ui.ApplyKnobConfig(knob, c.power.Charging())
	}
	if changed {
		c.PollNow()
	}
}

// baseURL returns the bridge in use. Called with mu held.
func (c *Controller) baseURL() string {
	if c.cfg.BridgeBase != "" {
		return c.cfg.BridgeBase
	}
	return c.fallbackBase
}

// setState changes the device state. Called with mu held.
func (c *Controller) setState(next DeviceState, reason string) {
	if next == c.state {
		return
	}
	logging.LogStateChange(c.state.String(), next.String())
	logging.Debug("Device state change reason", zap.String("reason", reason))
	c.state = next
}

func (c *Controller) bridgeFor(base string) Bridge {
	return c.bridges(base)
}

// save persists a snapshot of the config. Failures are logged only.
func (c *Controller) save(snapshot *config.Config) {
	if c.store == nil || snapshot == nil {
		return
	}
	if err := c.store.Save(snapshot); err != nil {
		logging.Warn("Failed to save config", zap.Error(err))
	}
}
