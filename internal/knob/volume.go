package knob

import (
	"context"

	"go.uber.org/zap"

	"github.com/muurk/knob/internal/bridge"
	"github.com/muurk/knob/internal/fastpath"
	"github.com/muurk/knob/internal/logging"
	"github.com/muurk/knob/internal/manifest"
)

// VolumeCache is the last known volume of the zone, advanced locally by
// every volume input and replaced by every successful poll.
type VolumeCache struct {
	Volume float64
	Min    float64
	Max    float64
	Step   float64
}

// DefaultVolumeCache is used until the first poll succeeds.
func DefaultVolumeCache() VolumeCache {
	return VolumeCache{Volume: 0, Min: -80, Max: 0, Step: 1}
}

// Multiplier maps the number of encoder ticks in one burst to a step
// multiplier.
func Multiplier(ticks int) int {
	if ticks < 0 {
		ticks = -ticks
	}
	switch {
	case ticks >= 3:
		return 5
	case ticks == 2:
		return 3
	default:
		return 1
	}
}

// Apply moves the cached volume by the burst, clamps it to [Min, Max],
// stores it and returns it.
func (v *VolumeCache) Apply(ticks int) float64 {
	if ticks == 0 {
		return v.Volume
	}
	delta := float64(Multiplier(ticks)) * v.Step
	if ticks < 0 {
		delta = -delta
	}
	predicted := v.Volume + delta
	if predicted < v.Min {
		predicted = v.Min
	}
	if predicted > v.Max {
		predicted = v.Max
	}
	v.Volume = predicted
	return predicted
}

// Update replaces the cache with the bridge's values.
func (v *VolumeCache) Update(fs manifest.FastState) {
	v.Volume = fs.Volume
	v.Min = fs.VolumeMin
	v.Max = fs.VolumeMax
	v.Step = fs.VolumeStep
	if v.Step <= 0 {
		v.Step = bridge.DefaultVolumeStep
	}
	if v.Min > v.Max {
		v.Min, v.Max = v.Max, v.Min
	}
}

// adjustVolume predicts the new volume for a burst of ticks, shows it and
// sends it. Nothing is rolled back when the send fails.
func (c *Controller) adjustVolume(ctx context.Context, ticks int) {
	if ticks == 0 {
		return
	}

	c.mu.Lock()
	if c.state != StateOperational {
		c.mu.Unlock()
		c.ui.SetMessage("Connecting...")
		return
	}
	predicted := c.volume.Apply(ticks)
	step := c.volume.Step
	zoneID := c.cfg.ZoneID
	base := c.baseURL()
	c.mu.Unlock()

	c.ui.ShowVolumeChange(predicted, step)

	if c.sendVolumeUDP(ctx, base, zoneID, predicted) {
		return
	}
	if err := c.bridgeFor(base).Control(ctx, bridge.VolumeRequest(zoneID, predicted)); err != nil {
		logging.Warn("Volume change failed",
			zap.Float64("volume", predicted),
			zap.String("error", bridge.ShortMessage(err)),
		)
		c.ui.SetMessage("Volume change failed")
	}
}

func (c *Controller) sendVolumeUDP(ctx context.Context, base, zoneID string, value float64) bool {
	if c.fast == nil {
		return false
	}
	ep, err := fastpath.ParseEndpoint(base)
	if err != nil {
		return false
	}
	if err := c.fast.SendVolume(ctx, ep, zoneID, value); err != nil {
		logging.Debug("UDP volume send failed, using HTTP", zap.Error(err))
		return false
	}
	return true
}
