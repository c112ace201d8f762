// Package config persists the knob's device configuration.
//
// The configuration is a small YAML file holding the bridge base URL, the
// selected zone, whether the bridge came from automatic discovery, and the
// display/power settings delivered by the bridge. It follows OS-specific
// conventions for storage location:
//   - Linux: $XDG_CONFIG_HOME/knob/device.yaml or $HOME/.config/knob/device.yaml
//   - macOS: $HOME/.config/knob/device.yaml
//   - Windows: %LOCALAPPDATA%\knob\device.yaml
//
// # Usage Example
//
//	store, err := config.DefaultStore()
//	if err != nil {
//	    return err
//	}
//	cfg, err := store.Load()
//	if errors.Is(err, config.ErrNotFound) {
//	    cfg = config.New()
//	}
//	cfg.ZoneID = "zone-1"
//	if err := store.Save(cfg); err != nil {
//	    return err
//	}
//
// Writes are atomic (temporary file plus rename). Watch reports edits made
// by other processes, such as a provisioning portal rewriting the bridge URL.
package config
