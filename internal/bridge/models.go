package bridge

import (
	"encoding/json"

	"github.com/muurk/knob/internal/config"
	"github.com/muurk/knob/internal/manifest"
)

const (
	// MaxZones is the number of zones kept from a /zones response.
	MaxZones = 64

	// DefaultVolumeStep is used when the bridge reports no positive step.
	DefaultVolumeStep = 1.0
)

// Zone is one playback zone offered by the bridge.
type Zone struct {
	ID   string `json:"zone_id"`
	Name string `json:"zone_name"`
}

// Battery is the power report sent with legacy now-playing polls.
type Battery struct {
	Level    int
	Charging bool
}

// NowPlaying is the legacy /now_playing response.
type NowPlaying struct {
	Line1        string  `json:"line1"`
	Line2        string  `json:"line2"`
	IsPlaying    bool    `json:"is_playing"`
	Volume       float64 `json:"volume"`
	VolumeMin    float64 `json:"volume_min"`
	VolumeMax    float64 `json:"volume_max"`
	VolumeStep   float64 `json:"volume_step"`
	SeekPosition int     `json:"seek_position"`
	Length       int     `json:"length"`
	ImageKey     string  `json:"image_key"`
	ConfigSHA    string  `json:"config_sha"`
	ZonesSHA     string  `json:"zones_sha"`
}

// FastState converts the legacy response into manifest fast state.
func (np *NowPlaying) FastState(zoneID string) manifest.FastState {
	return manifest.FastState{
		ZoneID:       zoneID,
		IsPlaying:    np.IsPlaying,
		Volume:       np.Volume,
		VolumeMin:    np.VolumeMin,
		VolumeMax:    np.VolumeMax,
		VolumeStep:   np.VolumeStep,
		SeekPosition: np.SeekPosition,
		Length:       np.Length,
	}
}

// ControlRequest is the body of POST /control.
type ControlRequest struct {
	ZoneID string          `json:"zone_id"`
	Action string          `json:"action"`
	Value  *float64        `json:"value,omitempty"`
	Params json.RawMessage `json:"params,omitempty"`
}

// VolumeRequest builds the absolute volume control request.
func VolumeRequest(zoneID string, value float64) ControlRequest {
	return ControlRequest{ZoneID: zoneID, Action: "vol_abs", Value: &value}
}

// timeoutSetting mirrors one {enabled, timeout_sec} object; absent keys stay nil.
type timeoutSetting struct {
	Enabled    *bool `json:"enabled"`
	TimeoutSec *int  `json:"timeout_sec"`
}

func (t *timeoutSetting) apply(dst *config.Timeout) {
	if t == nil {
		return
	}
	if t.Enabled != nil {
		dst.Enabled = *t.Enabled
	}
	if t.TimeoutSec != nil {
		dst.TimeoutSec = *t.TimeoutSec
	}
}

// KnobSettings is the "config" object of a /config/{knob_id} response.
// Every field is optional.
type KnobSettings struct {
	Name                *string `json:"name"`
	RotationCharging    *int    `json:"rotation_charging"`
	RotationNotCharging *int    `json:"rotation_not_charging"`

	ArtModeCharging   *timeoutSetting `json:"art_mode_charging"`
	ArtModeBattery    *timeoutSetting `json:"art_mode_battery"`
	DimCharging       *timeoutSetting `json:"dim_charging"`
	DimBattery        *timeoutSetting `json:"dim_battery"`
	SleepCharging     *timeoutSetting `json:"sleep_charging"`
	SleepBattery      *timeoutSetting `json:"sleep_battery"`
	DeepSleepCharging *timeoutSetting `json:"deep_sleep_charging"`
	DeepSleepBattery  *timeoutSetting `json:"deep_sleep_battery"`

	WiFiPowerSave       *bool `json:"wifi_power_save_enabled"`
	CPUFreqScaling      *bool `json:"cpu_freq_scaling_enabled"`
	SleepPollStoppedSec *int  `json:"sleep_poll_stopped_sec"`
}

// KnobConfig is the /config/{knob_id} response.
type KnobConfig struct {
	ConfigSHA string        `json:"config_sha"`
	Config    *KnobSettings `json:"config"`
}

// Apply copies the fields present in the response onto k.
func (kc *KnobConfig) Apply(k *config.Knob) {
	if kc == nil || kc.Config == nil || k == nil {
		return
	}
	s := kc.Config

	if s.Name != nil {
		k.Name = manifest.Truncate(*s.Name, manifest.MaxLabel)
	}
	if s.RotationCharging != nil {
		k.RotationCharging = *s.RotationCharging
	}
	if s.RotationNotCharging != nil {
		k.RotationNotCharging = *s.RotationNotCharging
	}

	s.ArtModeCharging.apply(&k.ArtModeCharging)
	s.ArtModeBattery.apply(&k.ArtModeBattery)
	s.DimCharging.apply(&k.DimCharging)
	s.DimBattery.apply(&k.DimBattery)
	s.SleepCharging.apply(&k.SleepCharging)
	s.SleepBattery.apply(&k.SleepBattery)
	s.DeepSleepCharging.apply(&k.DeepSleepCharging)
	s.DeepSleepBattery.apply(&k.DeepSleepBattery)

	if s.WiFiPowerSave != nil {
		k.WiFiPowerSave = *s.WiFiPowerSave
	}
	if s.CPUFreqScaling != nil {
		k.CPUFreqScaling = *s.CPUFreqScaling
	}
	if s.SleepPollStoppedSec != nil {
		k.SleepPollStoppedSec = *s.SleepPollStoppedSec
	}
}
