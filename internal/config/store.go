package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/muurk/knob/internal/logging"
)

const (
	appName    = "knob"
	configFile = "device.yaml"
)

// ErrNotFound is returned by Load when no config file exists yet.
var ErrNotFound = errors.New("config: not found")

// GetConfigDir returns the OS-appropriate configuration directory for the application.
// This follows platform conventions:
//   - Linux: $XDG_CONFIG_HOME/knob or $HOME/.config/knob
//   - macOS: $HOME/.config/knob (following XDG convention on macOS)
//   - Windows: %LOCALAPPDATA%\knob
func GetConfigDir() (string, error) {
	var baseDir string

	switch runtime.GOOS {
	case "windows":
		localAppData := os.Getenv("LOCALAPPDATA")
		if localAppData == "" {
			userProfile := os.Getenv("USERPROFILE")
			if userProfile == "" {
				return "", fmt.Errorf("cannot determine user profile directory (LOCALAPPDATA and USERPROFILE not set)")
			}
			baseDir = filepath.Join(userProfile, "AppData", "Local", appName)
		} else {
			baseDir = filepath.Join(localAppData, appName)
		}

	case "darwin":
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		baseDir = filepath.Join(homeDir, ".config", appName)

	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			baseDir = filepath.Join(xdg, appName)
		} else {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("cannot determine home directory: %w", err)
			}
			baseDir = filepath.Join(homeDir, ".config", appName)
		}
	}

	return baseDir, nil
}

// GetConfigPath returns the full path to the default configuration file.
func GetConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, configFile), nil
}

// Store reads and writes a Config at a fixed path.
// It is safe for concurrent use.
type Store struct {
	path string

	mu        sync.Mutex
	lastSaved []byte
}

// NewStore returns a store backed by the file at path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// DefaultStore returns a store at the OS-appropriate default path.
func DefaultStore() (*Store, error) {
	path, err := GetConfigPath()
	if err != nil {
		return nil, fmt.Errorf("failed to get config path: %w", err)
	}
	return NewStore(path), nil
}

// Path returns the file the store writes to.
func (s *Store) Path() string {
	return s.path
}

// Load reads the config from disk. It returns ErrNotFound when the file
// does not exist.
func (s *Store) Load() (*Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, _, err := s.read()
	return cfg, err
}

func (s *Store) read() (*Config, []byte, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil, ErrNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := decode(data)
	if err != nil {
		return nil, nil, err
	}
	return cfg, data, nil
}

func decode(data []byte) (*Config, error) {
	cfg := New()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Hand-written files may omit the version.
	if cfg.Version == 0 {
		cfg.Version = CurrentVersion
	}
	if cfg.Version != CurrentVersion {
		return nil, fmt.Errorf("unsupported config version: %d (expected %d)", cfg.Version, CurrentVersion)
	}
	return cfg, nil
}

// Save writes the config to disk.
// Performs an atomic write to prevent corruption on crash.
func (s *Store) Save(cfg *Config) error {
	if cfg == nil {
		return errors.New("config: nil config")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	out := *cfg
	if out.Version == 0 {
		out.Version = CurrentVersion
	}

	data, err := yaml.Marshal(&out)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# Knob Device Configuration
# Written by the knob whenever the bridge or zone changes.
# Edits made while the knob is running are picked up automatically.
#
# Location: ` + s.path + `

`)
	data = append(header, data...)

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temporary config file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to save config file: %w", err)
	}

	s.lastSaved = data
	return nil
}

// Watch calls onChange with the freshly loaded config whenever another
// process rewrites the file. Writes made through this store are ignored.
// It blocks until ctx is cancelled.
func (s *Store) Watch(ctx context.Context, onChange func(*Config)) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	// The directory is watched because atomic writes replace the file.
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	logging.Debug("Watching config file", zap.String("path", s.path))

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(s.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if cfg, changed := s.reloadExternal(); changed {
				onChange(cfg)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logging.Warn("Config watcher error", zap.Error(err))
		}
	}
}

// reloadExternal loads the file and reports whether it differs from the
// last write made through this store.
func (s *Store) reloadExternal() (*Config, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil || len(bytes.TrimSpace(data)) == 0 {
		// Missing or mid-truncate; the next event carries the content.
		return nil, false
	}
	if bytes.Equal(data, s.lastSaved) {
		return nil, false
	}

	cfg, err := decode(data)
	if err != nil {
		logging.Warn("Ignoring unreadable config edit", zap.Error(err))
		return nil, false
	}
	s.lastSaved = data
	return cfg, true
}
