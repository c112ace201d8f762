// Package settings loads the process-level runtime options of the knob
// daemon: where the device config lives, how discovery runs and how fast the
// controller polls. The device config itself (bridge, zone, knob settings)
// is owned by package config.
//
// Values are layered with viper: defaults, then an optional knob.yaml, then
// KNOB_* environment variables, then command-line flags.
package settings

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/muurk/knob/internal/knob"
)

// EnvPrefix prefixes every environment override, e.g. KNOB_BRIDGE.
const EnvPrefix = "KNOB"

// Keys
const (
	KeyLogLevel         = "log_level"
	KeyConfigPath       = "config"
	KeyKnobID           = "knob_id"
	KeyBridge           = "bridge"
	KeyFallback         = "fallback"
	KeyMode             = "mode"
	KeyMDNS             = "discovery.mdns"
	KeyBroadcast        = "discovery.broadcast"
	KeyMDNSTimeout      = "discovery.mdns_timeout"
	KeyBroadcastTimeout = "discovery.broadcast_timeout"
	KeyUDPTimeout       = "udp.timeout"
	KeyHTTPTimeout      = "http.timeout"
	KeyPollCharging     = "poll.charging"
	KeyPollBattery      = "poll.battery"
	KeyPollSleeping     = "poll.sleeping"
	KeyPollBridgeError  = "poll.bridge_error"
	KeyNotify           = "systemd_notify"
)

// Settings are the resolved runtime options.
type Settings struct {
	LogLevel   string
	ConfigPath string // "" selects the platform default
	KnobID     string

	// Bridge overrides the configured bridge base URL for this run.
	Bridge string
	// Fallback is used when discovery finds nothing. Never persisted.
	Fallback string

	Mode knob.Mode

	MDNS             bool
	Broadcast        bool
	MDNSTimeout      time.Duration
	BroadcastTimeout time.Duration
	UDPTimeout       time.Duration
	HTTPTimeout      time.Duration

	Intervals knob.Intervals

	// SystemdNotify sends READY and watchdog notifications when run under
	// systemd.
	SystemdNotify bool
}

// New returns a viper instance with defaults and environment binding set.
func New() *viper.Viper {
	v := viper.New()

	iv := knob.DefaultIntervals()
	v.SetDefault(KeyLogLevel, "")
	v.SetDefault(KeyConfigPath, "")
	v.SetDefault(KeyKnobID, defaultKnobID())
	v.SetDefault(KeyBridge, "")
	v.SetDefault(KeyFallback, "")
	v.SetDefault(KeyMode, knob.ModeManifest.String())
	v.SetDefault(KeyMDNS, true)
	v.SetDefault(KeyBroadcast, true)
	v.SetDefault(KeyMDNSTimeout, "3s")
	v.SetDefault(KeyBroadcastTimeout, "1s")
	v.SetDefault(KeyUDPTimeout, "500ms")
	v.SetDefault(KeyHTTPTimeout, "5s")
	v.SetDefault(KeyPollCharging, iv.Charging.String())
	v.SetDefault(KeyPollBattery, iv.Battery.String())
	v.SetDefault(KeyPollSleeping, iv.Sleeping.String())
	v.SetDefault(KeyPollBridgeError, iv.BridgeError.String())
	v.SetDefault(KeyNotify, true)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("knob")
	v.SetConfigType("yaml")
	v.AddConfigPath(filepath.Join("/etc", "knob"))
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "knob"))
	}
	return v
}

// BindFlags registers the flags that override settings and binds them.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	fs.String(KeyLogLevel, "", "Log level (debug, info, warn, error); empty is silent")
	fs.String(KeyConfigPath, "", "Device config file (default: platform config dir)")
	fs.String(KeyBridge, "", "Bridge base URL, e.g. http://192.168.1.10:8088 (skips discovery)")
	fs.String(KeyFallback, "", "Bridge base URL to use for the session when discovery fails")
	fs.String(KeyMode, knob.ModeManifest.String(), "Poll mode (manifest, now_playing)")

	for _, name := range []string{KeyLogLevel, KeyConfigPath, KeyBridge, KeyFallback, KeyMode} {
		if err := v.BindPFlag(name, fs.Lookup(name)); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	return nil
}

// Load reads the optional settings file and resolves every value.
func Load(v *viper.Viper) (*Settings, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read settings: %w", err)
		}
	}
	return Resolve(v)
}

// Resolve builds Settings from v without touching the filesystem.
func Resolve(v *viper.Viper) (*Settings, error) {
	mode, err := knob.ParseMode(v.GetString(KeyMode))
	if err != nil {
		return nil, err
	}

	s := &Settings{
		LogLevel:         v.GetString(KeyLogLevel),
		ConfigPath:       v.GetString(KeyConfigPath),
		KnobID:           v.GetString(KeyKnobID),
		Bridge:           strings.TrimRight(v.GetString(KeyBridge), "/"),
		Fallback:         strings.TrimRight(v.GetString(KeyFallback), "/"),
		Mode:             mode,
		MDNS:             v.GetBool(KeyMDNS),
		Broadcast:        v.GetBool(KeyBroadcast),
		MDNSTimeout:      v.GetDuration(KeyMDNSTimeout),
		BroadcastTimeout: v.GetDuration(KeyBroadcastTimeout),
		UDPTimeout:       v.GetDuration(KeyUDPTimeout),
		HTTPTimeout:      v.GetDuration(KeyHTTPTimeout),
		Intervals: knob.Intervals{
			Charging:    v.GetDuration(KeyPollCharging),
			Battery:     v.GetDuration(KeyPollBattery),
			Sleeping:    v.GetDuration(KeyPollSleeping),
			BridgeError: v.GetDuration(KeyPollBridgeError),
		},
		SystemdNotify: v.GetBool(KeyNotify),
	}

	if err := s.validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Settings) validate() error {
	durations := map[string]time.Duration{
		KeyMDNSTimeout:      s.MDNSTimeout,
		KeyBroadcastTimeout: s.BroadcastTimeout,
		KeyUDPTimeout:       s.UDPTimeout,
		KeyHTTPTimeout:      s.HTTPTimeout,
		KeyPollCharging:     s.Intervals.Charging,
		KeyPollBattery:      s.Intervals.Battery,
		KeyPollSleeping:     s.Intervals.Sleeping,
		KeyPollBridgeError:  s.Intervals.BridgeError,
	}
	for key, d := range durations {
		if d <= 0 {
			return fmt.Errorf("settings: %s must be positive, got %s", key, d)
		}
	}
	if s.KnobID == "" {
		return errors.New("settings: knob_id must not be empty")
	}
	return nil
}

func defaultKnobID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "knob"
	}
	return host
}
