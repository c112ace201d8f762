package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

func TestGetConfigDir(t *testing.T) {
	configDir, err := GetConfigDir()
	if err != nil {
		t.Fatalf("GetConfigDir() error = %v", err)
	}

	if !strings.Contains(configDir, "knob") {
		t.Errorf("GetConfigDir() = %v, should contain 'knob'", configDir)
	}

	switch runtime.GOOS {
	case "darwin", "linux":
		if os.Getenv("XDG_CONFIG_HOME") == "" && !strings.Contains(configDir, ".config") {
			t.Errorf("Unix config dir should contain '.config', got: %v", configDir)
		}
	}
}

func TestGetConfigDir_XDG(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("XDG_CONFIG_HOME only applies on linux")
	}
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")

	configDir, err := GetConfigDir()
	if err != nil {
		t.Fatalf("GetConfigDir() error = %v", err)
	}
	if configDir != filepath.Join("/tmp/xdg", "knob") {
		t.Errorf("GetConfigDir() = %v, want /tmp/xdg/knob", configDir)
	}
}

func TestGetConfigPath(t *testing.T) {
	configPath, err := GetConfigPath()
	if err != nil {
		t.Fatalf("GetConfigPath() error = %v", err)
	}
	if filepath.Base(configPath) != "device.yaml" {
		t.Errorf("GetConfigPath() should end with 'device.yaml', got: %v", configPath)
	}
}

func TestStore_LoadMissing(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "device.yaml"))

	cfg, err := store.Load()
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Load() error = %v, want ErrNotFound", err)
	}
	if cfg != nil {
		t.Errorf("Load() = %v, want nil", cfg)
	}
}

func TestStore_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "device.yaml")
	store := NewStore(path)

	cfg := New()
	cfg.BridgeBase = "http://192.168.1.10:8088"
	cfg.ZoneID = "zone-kitchen"
	cfg.BridgeFromMDNS = true
	cfg.ConfigSHA = "abc123"
	cfg.Knob.Name = "Kitchen Knob"
	cfg.Knob.RotationCharging = 180
	cfg.Knob.SleepPollStoppedSec = 120

	if err := store.Save(cfg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if runtime.GOOS != "windows" && info.Mode().Perm() != 0600 {
		t.Errorf("file mode = %v, want 0600", info.Mode().Perm())
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temporary file should not remain after Save()")
	}

	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if *got != *cfg {
		t.Errorf("Load() = %+v, want %+v", got, cfg)
	}
}

func TestStore_LoadDefaultsAndVersion(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr bool
		check   func(t *testing.T, cfg *Config)
	}{
		{
			name:    "missing version and knob use defaults",
			content: "bridge_base: http://10.0.0.2:8088\n",
			check: func(t *testing.T, cfg *Config) {
				if cfg.Version != CurrentVersion {
					t.Errorf("Version = %v, want %v", cfg.Version, CurrentVersion)
				}
				if cfg.BridgeBase != "http://10.0.0.2:8088" {
					t.Errorf("BridgeBase = %v, want http://10.0.0.2:8088", cfg.BridgeBase)
				}
				if cfg.Knob != DefaultKnob() {
					t.Errorf("Knob = %+v, want defaults", cfg.Knob)
				}
			},
		},
		{
			name:    "partial knob keeps other defaults",
			content: "version: 1\nknob:\n  rotation_not_charging: 90\n",
			check: func(t *testing.T, cfg *Config) {
				if cfg.Knob.RotationNotCharging != 90 {
					t.Errorf("RotationNotCharging = %v, want 90", cfg.Knob.RotationNotCharging)
				}
				if cfg.Knob.SleepPollStoppedSec != 60 {
					t.Errorf("SleepPollStoppedSec = %v, want 60", cfg.Knob.SleepPollStoppedSec)
				}
			},
		},
		{
			name:    "unsupported version",
			content: "version: 2\n",
			wantErr: true,
		},
		{
			name:    "invalid yaml",
			content: "version: [\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "device.yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0600); err != nil {
				t.Fatal(err)
			}

			cfg, err := NewStore(path).Load()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Load() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func TestKnob_RotationAndTimeouts(t *testing.T) {
	k := DefaultKnob()
	k.RotationCharging = 180
	k.RotationNotCharging = 0

	if got := k.Rotation(true); got != 180 {
		t.Errorf("Rotation(true) = %v, want 180", got)
	}
	if got := k.Rotation(false); got != 0 {
		t.Errorf("Rotation(false) = %v, want 0", got)
	}

	if got := k.Timeouts(true).Dim; got != k.DimCharging {
		t.Errorf("Timeouts(true).Dim = %+v, want %+v", got, k.DimCharging)
	}
	if got := k.Timeouts(false).DeepSleep; got != k.DeepSleepBattery {
		t.Errorf("Timeouts(false).DeepSleep = %+v, want %+v", got, k.DeepSleepBattery)
	}
}

func TestStore_WatchExternalEdit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "device.yaml")
	store := NewStore(path)

	if err := store.Save(New()); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan *Config, 4)
	done := make(chan error, 1)
	go func() {
		done <- store.Watch(ctx, func(cfg *Config) { changes <- cfg })
	}()

	// Give the watcher time to register before editing.
	time.Sleep(100 * time.Millisecond)

	// A write through the store itself must not be reported.
	own := New()
	own.ZoneID = "own-write"
	if err := store.Save(own); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if err := os.WriteFile(path, []byte("version: 1\nbridge_base: http://10.1.1.1:8088\n"), 0600); err != nil {
		t.Fatal(err)
	}

	select {
	case cfg := <-changes:
		if cfg.BridgeBase != "http://10.1.1.1:8088" {
			t.Errorf("changed BridgeBase = %v, want http://10.1.1.1:8088", cfg.BridgeBase)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Watch() did not report the external edit")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Watch() error = %v", err)
		}
	case <-time.After(time.Second):
		t.Error("Watch() did not return after cancel")
	}
}
