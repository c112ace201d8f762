package knob

import (
	"context"

	"go.uber.org/zap"

	"github.com/muurk/knob/internal/logging"
)

// refreshZones fetches the zone list and settles on a zone: the configured
// one when prefer is set and it still exists, otherwise the first zone.
// Loading any zones makes the knob Operational.
func (c *Controller) refreshZones(ctx context.Context, prefer bool) bool {
	c.mu.Lock()
	base := c.baseURL()
	c.mu.Unlock()
	if base == "" {
		return false
	}

	zones, err := c.bridgeFor(base).Zones(ctx)
	if err != nil {
		logBridgeFailure("Zone refresh", err)
		return false
	}

	c.mu.Lock()
	c.zones = zones
	if len(zones) == 0 {
		c.mu.Unlock()
		logging.Info("Bridge reported no zones")
		return false
	}

	chosen := -1
	for i, z := range zones {
		if prefer && c.cfg.ZoneID != "" && z.ID == c.cfg.ZoneID {
			chosen = i
			break
		}
		if c.cfg.ZoneID == "" {
			chosen = i
			break
		}
	}
	if chosen < 0 {
		chosen = 0
	}
	if zones[chosen].ID != c.cfg.ZoneID {
		c.manifestSHA = ""
		c.forceArtwork = true
	}
	c.cfg.ZoneID = zones[chosen].ID
	c.zoneLabel = zones[chosen].Name
	c.zoneResolved = true

	cleared := false
	if c.state != StateOperational {
		c.setState(StateOperational, "zones loaded")
		cleared = true
	}
	label := c.zoneLabel
	snapshot := c.cfg.Clone()
	c.mu.Unlock()

	logging.Info("Zone selected",
		zap.String("zone_id", snapshot.ZoneID),
		zap.String("zone_name", label),
		zap.Int("zones", len(zones)),
	)
	if cleared {
		c.ui.SetNetworkStatus("")
	}
	c.save(snapshot)
	c.ui.SetZoneName(label)
	return true
}

// SelectZone switches to a zone from the last zone list. It returns false
// when the id is unknown or already selected.
func (c *Controller) SelectZone(zoneID string) bool {
	c.mu.Lock()
	if zoneID == c.cfg.ZoneID {
		c.mu.Unlock()
		logging.Debug("Zone already selected", zap.String("zone_id", zoneID))
		return false
	}
	idx := -1
	for i, z := range c.zones {
		if z.ID == zoneID {
			idx = i
			break
		}
	}
	if idx < 0 {
		c.mu.Unlock()
		logging.Warn("Selected zone not in zone list", zap.String("zone_id", zoneID))
		return false
	}

	c.cfg.ZoneID = c.zones[idx].ID
	c.zoneLabel = c.zones[idx].Name
	c.zoneResolved = true
	c.manifestSHA = ""
	c.forceArtwork = true
	cleared := false
	if c.state != StateOperational {
		c.setState(StateOperational, "zone selected")
		cleared = true
	}
	label := c.zoneLabel
	snapshot := c.cfg.Clone()
	c.mu.Unlock()

	logging.Info("Switching zone", zap.String("zone_id", zoneID), zap.String("zone_name", label))
	if cleared {
		c.ui.SetNetworkStatus("")
	}
	c.save(snapshot)
	c.ui.SetZoneName(label)
	c.ui.SetMessage("Loading zone...")
	c.PollNow()
	return true
}
