package knob

import (
	"context"

	"go.uber.org/zap"

	"github.com/muurk/knob/internal/bridge"
	"github.com/muurk/knob/internal/logging"
)

// checkConfigSHA fetches the knob config when the bridge reports a hash that
// differs from the one last applied.
func (c *Controller) checkConfigSHA(ctx context.Context, sha string) {
	if sha == "" {
		return
	}
	c.mu.Lock()
	changed := sha != c.cfg.ConfigSHA
	current := c.cfg.ConfigSHA
	c.mu.Unlock()
	if !changed {
		return
	}
	logging.Info("Config SHA changed, fetching new config",
		zap.String("from", current),
		zap.String("to", sha),
	)
	c.refreshKnobConfig(ctx)
}

// refreshKnobConfig fetches /config/{knob_id} and applies it when its hash
// is new.
func (c *Controller) refreshKnobConfig(ctx context.Context) bool {
	c.mu.Lock()
	base := c.baseURL()
	c.mu.Unlock()
	if base == "" {
		return false
	}

	kc, err := c.bridgeFor(base).KnobConfig(ctx)
	if err != nil {
		if bridge.IsNotConfigured(err) {
			return false
		}
		logBridgeFailure("Knob config fetch", err)
		return false
	}

	c.mu.Lock()
	if kc.ConfigSHA != "" && kc.ConfigSHA == c.cfg.ConfigSHA {
		c.mu.Unlock()
		return true
	}
	kc.Apply(&c.cfg.Knob)
	c.cfg.ConfigSHA = kc.ConfigSHA
	snapshot := c.cfg.Clone()
	c.mu.Unlock()

	logging.Info("Knob config applied",
		zap.String("sha", snapshot.ConfigSHA),
		zap.String("name", snapshot.Knob.Name),
		zap.Int("sleep_poll_stopped_sec", snapshot.Knob.SleepPollStoppedSec),
	)
	c.save(snapshot)
	c.ui.ApplyKnobConfig(snapshot.Knob, c.power.Charging())
	return true
}

// checkCharging reapplies the knob config when the power source changes.
func (c *Controller) checkCharging() {
	charging := c.power.Charging()

	c.mu.Lock()
	changed := charging != c.lastCharging
	c.lastCharging = charging
	knob := c.cfg.Knob
	c.mu.Unlock()

	if !changed {
		return
	}
	logging.Info("Charging state changed", zap.Bool("charging", charging))
	c.ui.ApplyKnobConfig(knob, charging)
}
