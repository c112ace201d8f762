package config

// CurrentVersion is the only config file version this package understands.
const CurrentVersion = 1

// Config is the persisted device configuration.
type Config struct {
	Version        int    `yaml:"version"`
	BridgeBase     string `yaml:"bridge_base,omitempty"`      // e.g. http://192.168.1.10:8088
	ZoneID         string `yaml:"zone_id,omitempty"`          // Selected zone
	BridgeFromMDNS bool   `yaml:"bridge_from_mdns,omitempty"` // Bridge was found automatically
	ConfigSHA      string `yaml:"config_sha,omitempty"`       // Hash of the last applied knob config
	Knob           Knob   `yaml:"knob"`
}

// Timeout is one enable-able display timeout.
type Timeout struct {
	Enabled    bool `yaml:"enabled" json:"enabled"`
	TimeoutSec int  `yaml:"timeout_sec" json:"timeout_sec"`
}

// Knob holds the display and power settings the bridge manages for a knob.
type Knob struct {
	Name                string `yaml:"name,omitempty"`
	RotationCharging    int    `yaml:"rotation_charging"`
	RotationNotCharging int    `yaml:"rotation_not_charging"`

	ArtModeCharging   Timeout `yaml:"art_mode_charging"`
	ArtModeBattery    Timeout `yaml:"art_mode_battery"`
	DimCharging       Timeout `yaml:"dim_charging"`
	DimBattery        Timeout `yaml:"dim_battery"`
	SleepCharging     Timeout `yaml:"sleep_charging"`
	SleepBattery      Timeout `yaml:"sleep_battery"`
	DeepSleepCharging Timeout `yaml:"deep_sleep_charging"`
	DeepSleepBattery  Timeout `yaml:"deep_sleep_battery"`

	WiFiPowerSave       bool `yaml:"wifi_power_save_enabled"`
	CPUFreqScaling      bool `yaml:"cpu_freq_scaling_enabled"`
	SleepPollStoppedSec int  `yaml:"sleep_poll_stopped_sec"` // Poll interval while asleep and stopped; 0 disables
}

// Timeouts is the set of display timeouts for one power source.
type Timeouts struct {
	ArtMode   Timeout
	Dim       Timeout
	Sleep     Timeout
	DeepSleep Timeout
}

// New returns a Config with default values.
func New() *Config {
	return &Config{
		Version: CurrentVersion,
		Knob:    DefaultKnob(),
	}
}

// DefaultKnob returns the settings a knob uses before the bridge sends any.
func DefaultKnob() Knob {
	return Knob{
		ArtModeCharging:   Timeout{Enabled: true, TimeoutSec: 60},
		ArtModeBattery:    Timeout{Enabled: true, TimeoutSec: 30},
		DimCharging:       Timeout{Enabled: true, TimeoutSec: 120},
		DimBattery:        Timeout{Enabled: true, TimeoutSec: 30},
		SleepCharging:     Timeout{Enabled: false, TimeoutSec: 0},
		SleepBattery:      Timeout{Enabled: true, TimeoutSec: 60},
		DeepSleepCharging: Timeout{Enabled: false, TimeoutSec: 0},
		DeepSleepBattery:  Timeout{Enabled: true, TimeoutSec: 1200},

		WiFiPowerSave:       true,
		CPUFreqScaling:      true,
		SleepPollStoppedSec: 60,
	}
}

// Rotation returns the display rotation in degrees for the power source.
func (k Knob) Rotation(charging bool) int {
	if charging {
		return k.RotationCharging
	}
	return k.RotationNotCharging
}

// Timeouts returns the display timeouts for the power source.
func (k Knob) Timeouts(charging bool) Timeouts {
	if charging {
		return Timeouts{
			ArtMode:   k.ArtModeCharging,
			Dim:       k.DimCharging,
			Sleep:     k.SleepCharging,
			DeepSleep: k.DeepSleepCharging,
		}
	}
	return Timeouts{
		ArtMode:   k.ArtModeBattery,
		Dim:       k.DimBattery,
		Sleep:     k.SleepBattery,
		DeepSleep: k.DeepSleepBattery,
	}
}

// Clone returns a copy of the config.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	cp := *c
	return &cp
}
