package knob

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/knob/internal/bridge"
	"github.com/muurk/knob/internal/discovery"
	"github.com/muurk/knob/internal/fastpath"
	"github.com/muurk/knob/internal/logging"
	"github.com/muurk/knob/internal/manifest"
	"github.com/muurk/knob/internal/wire"
)

// Run applies the stored knob config and polls until ctx is done.
func (c *Controller) Run(ctx context.Context) error {
	c.mu.Lock()
	knob := c.cfg.Knob
	c.lastCharging = c.power.Charging()
	c.mu.Unlock()

	logging.Info("Controller started", zap.String("mode", c.mode.String()))
	c.ui.ApplyKnobConfig(knob, c.power.Charging())

	for {
		c.PollOnce(ctx)

		timer := time.NewTimer(c.PollInterval())
		select {
		case <-ctx.Done():
			timer.Stop()
			logging.Info("Controller stopped")
			return nil
		case <-c.trigger:
			timer.Stop()
		case <-timer.C:
		}
	}
}

// PollInterval returns how long to wait before the next poll.
func (c *Controller) PollInterval() time.Duration {
	c.mu.Lock()
	fails := c.bridgeFails
	playing := c.lastIsPlaying
	stoppedSec := c.cfg.Knob.SleepPollStoppedSec
	c.mu.Unlock()

	switch {
	case fails >= BridgeFailThreshold:
		return c.intervals.BridgeError
	case c.power.DisplaySleeping():
		if !playing && stoppedSec > 0 {
			return time.Duration(stoppedSec) * time.Second
		}
		return c.intervals.Sleeping
	case c.power.Charging():
		return c.intervals.Charging
	default:
		return c.intervals.Battery
	}
}

// PollOnce runs one poll cycle and reports whether the bridge answered.
func (c *Controller) PollOnce(ctx context.Context) bool {
	c.mu.Lock()
	ready := c.networkReady
	runDiscovery := !c.verified || c.now().Sub(c.lastDiscovery) > DiscoveryRecheck
	c.mu.Unlock()
	if !ready {
		return false
	}

	if runDiscovery {
		c.discover(ctx)
		c.mu.Lock()
		c.lastDiscovery = c.now()
		c.mu.Unlock()
	}

	c.mu.Lock()
	resolved := c.zoneResolved
	c.mu.Unlock()
	if !resolved {
		c.refreshZones(ctx, true)
	}

	var ok bool
	if c.mode == ModeNowPlaying {
		ok = c.pollNowPlaying(ctx)
	} else {
		ok = c.pollManifest(ctx)
	}
	c.reportConnection(ctx, ok)
	return ok
}

// discover runs the resolver when no bridge is configured.
func (c *Controller) discover(ctx context.Context) {
	c.mu.Lock()
	need := c.cfg.BridgeBase == ""
	c.mu.Unlock()
	if !need || c.resolver == nil {
		return
	}

	res, ok := c.resolver.Resolve(ctx, "")

	c.mu.Lock()
	switch {
	case ok && res.Persist:
		c.cfg.BridgeBase = discovery.NormalizeBaseURL(res.BaseURL)
		c.cfg.BridgeFromMDNS = res.FromMDNS
		c.fallbackBase = ""
		c.discoveryFails = 0
		snapshot := c.cfg.Clone()
		c.mu.Unlock()
		logging.Info("Bridge discovered",
			zap.String("base_url", snapshot.BridgeBase),
			zap.String("method", res.Method.String()),
		)
		c.save(snapshot)
		c.ui.SetMessage("Bridge: Found")
		return
	case ok:
		c.fallbackBase = discovery.NormalizeBaseURL(res.BaseURL)
	default:
		if c.discoveryFails < DiscoveryFailThreshold {
			c.discoveryFails++
		}
		logging.Warn("Bridge discovery failed",
			zap.Int("attempt", c.discoveryFails),
			zap.Int("max", DiscoveryFailThreshold),
		)
	}
	c.mu.Unlock()
}

// pollManifest tries the UDP fast path and falls back to HTTP in the same
// cycle.
func (c *Controller) pollManifest(ctx context.Context) bool {
	c.mu.Lock()
	base, zoneID, sha := c.baseURL(), c.cfg.ZoneID, c.manifestSHA
	c.mu.Unlock()

	var m *manifest.Manifest
	full := true
	if resp, ok := c.pollUDP(ctx, base, zoneID, sha); ok && resp.ManifestSHA() == sha {
		m = manifest.FastOnly(sha, resp.FastState())
		full = false
	} else {
		m = c.fetchManifest(ctx, base, zoneID, sha)
	}
	ok := m != nil

	c.ui.SetStatus(ok)
	if ok {
		c.mu.Lock()
		c.lastIsPlaying = m.Fast.IsPlaying
		c.volume.Update(m.Fast)
		c.mu.Unlock()
	}
	c.checkCharging()
	if ok {
		c.deliverManifest(m, full)
	}
	return ok
}

func (c *Controller) pollUDP(ctx context.Context, base, zoneID, sha string) (*wire.Response, bool) {
	if c.fast == nil || base == "" || zoneID == "" {
		return nil, false
	}
	ep, err := fastpath.ParseEndpoint(base)
	if err != nil {
		return nil, false
	}
	resp, err := c.fast.Poll(ctx, ep, sha, zoneID)
	if err != nil {
		if !errors.Is(err, fastpath.ErrUnavailable) {
			logging.Warn("UDP poll error", zap.Error(err))
		}
		logging.Debug("UDP unavailable, falling back to HTTP", zap.Error(err))
		return nil, false
	}
	return resp, true
}

// fetchManifest fetches and parses the full manifest and caches its SHA.
func (c *Controller) fetchManifest(ctx context.Context, base, zoneID, sha string) *manifest.Manifest {
	if base == "" || zoneID == "" {
		return nil
	}
	m, err := c.bridgeFor(base).FetchManifest(ctx, zoneID, sha)
	if err != nil {
		logBridgeFailure("Manifest fetch", err)
		return nil
	}
	m.MarkSelectedZone(zoneID)

	c.mu.Lock()
	if c.cfg.ZoneID == zoneID {
		c.manifestSHA = m.SHA
	}
	c.mu.Unlock()
	return m
}

// deliverManifest hands the manifest to the UI, which owns it from then
// on. A full manifest also refreshes the dispatch tables and the artwork.
func (c *Controller) deliverManifest(m *manifest.Manifest, full bool) {
	if !full {
		c.ui.UpdateManifest(m)
		return
	}

	var image string
	for i := range m.Screens {
		if media, ok := m.Screens[i].Body.(manifest.Media); ok {
			image = media.ImageURL
			break
		}
	}

	c.mu.Lock()
	c.tables.update(m)
	artChanged := c.forceArtwork || image != c.lastImageKey
	c.forceArtwork = false
	c.lastImageKey = image
	c.mu.Unlock()

	c.ui.UpdateManifest(m)
	if artChanged {
		c.sendArtwork(image != "")
	}
}

// sendArtwork posts the artwork URL for the current zone, or clears the
// artwork when there is none.
func (c *Controller) sendArtwork(present bool) {
	if !present {
		c.ui.SetArtwork("")
		return
	}
	if u, ok := c.ArtworkURL(ArtSize, ArtSize, ArtClipRadius); ok {
		c.ui.SetArtwork(u)
	}
}

// pollNowPlaying polls the legacy endpoint.
func (c *Controller) pollNowPlaying(ctx context.Context) bool {
	c.mu.Lock()
	base, zoneID := c.baseURL(), c.cfg.ZoneID
	c.mu.Unlock()

	var np *bridge.NowPlaying
	if base != "" && zoneID != "" {
		battery := bridge.Battery{Level: c.power.BatteryLevel(), Charging: c.power.Charging()}
		var err error
		np, err = c.bridgeFor(base).NowPlaying(ctx, zoneID, battery)
		if err != nil {
			logBridgeFailure("Now playing fetch", err)
			np = nil
		}
	}
	ok := np != nil

	c.ui.SetStatus(ok)
	if ok {
		c.mu.Lock()
		c.lastIsPlaying = np.IsPlaying
		c.mu.Unlock()

		c.checkConfigSHA(ctx, np.ConfigSHA)
		c.checkZonesSHA(ctx, np.ZonesSHA)
	}
	c.checkCharging()
	if ok {
		c.deliverNowPlaying(np, zoneID)
	}
	return ok
}

func (c *Controller) deliverNowPlaying(np *bridge.NowPlaying, zoneID string) {
	fs := np.FastState(zoneID)

	c.mu.Lock()
	c.volume.Update(fs)
	force := c.forceArtwork
	if force {
		c.forceArtwork = false
		c.lastImageKey = ""
	}
	artChanged := force || np.ImageKey != c.lastImageKey
	c.lastImageKey = np.ImageKey
	c.mu.Unlock()

	c.ui.UpdateNowPlaying(np.Line1, np.Line2)
	c.ui.UpdateManifest(manifest.FastOnly("", fs))
	if artChanged {
		c.sendArtwork(np.ImageKey != "")
	}
}

// checkZonesSHA refreshes the zone list when the bridge reports a change.
func (c *Controller) checkZonesSHA(ctx context.Context, sha string) {
	if sha == "" {
		return
	}
	c.mu.Lock()
	changed := sha != c.zonesSHA
	if changed {
		logging.Info("Zones SHA changed", zap.String("from", c.zonesSHA), zap.String("to", sha))
		c.zonesSHA = sha
	}
	c.mu.Unlock()
	if changed {
		c.refreshZones(ctx, true)
	}
}

// reportConnection drives the status texts from the result of a poll.
func (c *Controller) reportConnection(ctx context.Context, ok bool) {
	c.mu.Lock()
	wasOK := c.lastNetOK
	c.lastNetOK = ok

	switch {
	case ok && !wasOK:
		c.bridgeFails = 0
		c.verified = true
		label := c.zoneLabel
		c.mu.Unlock()

		logging.Info("Bridge connected")
		c.ui.SetMessage("Bridge: Connected")
		c.ui.SetNetworkStatus("")
		if label != "" {
			c.ui.SetZoneName(label)
		}
		if c.mode == ModeManifest {
			c.refreshKnobConfig(ctx)
		}

	case ok:
		c.mu.Unlock()

	case wasOK:
		c.incrementBridgeFails()
		c.verified = false
		n := c.bridgeFails
		c.mu.Unlock()

		logging.Warn("Bridge connection lost")
		c.showTesting(n)

	case c.baseURL() == "":
		fails, ip := c.discoveryFails, c.deviceIP
		c.mu.Unlock()
		c.showSearching(fails, ip)

	default:
		c.incrementBridgeFails()
		n, ip := c.bridgeFails, c.deviceIP
		c.mu.Unlock()

		if n >= BridgeFailThreshold {
			c.showUnreachable(ip)
		} else {
			c.showTesting(n)
		}
	}
}

// incrementBridgeFails bumps the capped failure counter. Called with mu held.
func (c *Controller) incrementBridgeFails() {
	if c.bridgeFails < BridgeFailThreshold {
		c.bridgeFails++
	}
}

// The status helpers follow the display's convention: line1 is the main
// content at the bottom and line2 the header above it.

func (c *Controller) showTesting(attempt int) {
	c.ui.SetZoneName("")
	c.ui.UpdateNowPlaying(fmt.Sprintf("Attempt %d of %d...", attempt, BridgeFailThreshold), "Testing Bridge")
	c.ui.SetNetworkStatus(fmt.Sprintf("Testing Bridge\nAttempt %d of %d...", attempt, BridgeFailThreshold))
}

func (c *Controller) showUnreachable(deviceIP string) {
	c.ui.SetZoneName("")
	if deviceIP != "" {
		c.ui.UpdateNowPlaying("http://"+deviceIP, "Update Bridge at:")
		c.ui.SetNetworkStatus("Bridge unreachable\nUpdate at http://" + deviceIP)
		return
	}
	c.ui.UpdateNowPlaying("Use zone menu > Settings", "Bridge Unreachable")
	c.ui.SetNetworkStatus("Bridge unreachable. Check Settings.")
}

func (c *Controller) showSearching(fails int, deviceIP string) {
	c.ui.SetZoneName("")
	if fails < DiscoveryFailThreshold {
		attempt := fails + 1
		c.ui.UpdateNowPlaying(fmt.Sprintf("Attempt %d of %d...", attempt, DiscoveryFailThreshold), "Searching for Bridge")
		c.ui.SetNetworkStatus(fmt.Sprintf("Searching for Bridge\nAttempt %d of %d...", attempt, DiscoveryFailThreshold))
		return
	}
	if deviceIP != "" {
		c.ui.UpdateNowPlaying("http://"+deviceIP, "Set Bridge URL at:")
		c.ui.SetNetworkStatus("mDNS failed. Set Bridge at http://" + deviceIP)
		return
	}
	c.ui.UpdateNowPlaying("Use zone menu > Settings", "Bridge Not Found")
	c.ui.SetNetworkStatus("mDNS failed. Configure Bridge in Settings.")
}

// logBridgeFailure logs a failed bridge request at a level that fits its
// cause. An unreachable bridge stays at debug; the status text covers it.
func logBridgeFailure(what string, err error) {
	fields := []zap.Field{
		zap.String("error", bridge.ShortMessage(err)),
		zap.Bool("retryable", bridge.IsRetryable(err)),
	}
	switch {
	case bridge.IsNotConfigured(err):
		logging.Debug(what+" skipped", fields...)
	case bridge.IsNetworkError(err):
		logging.Debug(what+" failed: bridge unreachable", fields...)
	case bridge.IsParseError(err):
		logging.Warn(what+" failed: malformed response", fields...)
	case bridge.IsBridgeError(err):
		logging.Warn(what+" failed: bridge reported an error", fields...)
	case bridge.IsHTTPError(err) && !bridge.IsRetryable(err):
		logging.Warn(what+" failed: request refused", fields...)
	default:
		logging.Debug(what+" failed", fields...)
	}
}
