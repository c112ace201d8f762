package main

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/muurk/knob/internal/bridge"
	"github.com/muurk/knob/internal/config"
	"github.com/muurk/knob/internal/discovery"
	"github.com/muurk/knob/internal/fastpath"
	"github.com/muurk/knob/internal/knob"
	"github.com/muurk/knob/internal/logging"
	"github.com/muurk/knob/internal/netstate"
	"github.com/muurk/knob/internal/settings"
	"github.com/muurk/knob/internal/ui"
	"github.com/muurk/knob/internal/version"
)

// engine is a controller with its transports, store and watchers.
type engine struct {
	store *config.Store
	fast  *fastpath.Transport
	power *knob.StaticPower
	ctrl  *knob.Controller
}

func openStore(s *settings.Settings) (*config.Store, error) {
	if s.ConfigPath != "" {
		return config.NewStore(s.ConfigPath), nil
	}
	return config.DefaultStore()
}

func loadDeviceConfig(store *config.Store) (*config.Config, error) {
	c, err := store.Load()
	if errors.Is(err, config.ErrNotFound) {
		logging.Info("No device config yet, starting fresh", zap.String("path", store.Path()))
		return config.New(), nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func newTransport(s *settings.Settings) *fastpath.Transport {
	fast := fastpath.New()
	fast.PollTimeout = s.UDPTimeout
	fast.BroadcastTimeout = s.BroadcastTimeout
	return fast
}

func newClient(s *settings.Settings, base string) *bridge.Client {
	c := bridge.NewClient(base, s.KnobID, version.Version)
	c.SetTimeout(s.HTTPTimeout)
	return c
}

func newResolver(s *settings.Settings, fast *fastpath.Transport) *discovery.Resolver {
	r := discovery.NewResolver(nil, nil)
	if s.Broadcast {
		r.Broadcaster = fast
	}
	if s.MDNS {
		sc := discovery.NewScanner()
		sc.Timeout = s.MDNSTimeout
		r.Browser = sc
	}
	r.Fallback = s.Fallback
	return r
}

func newEngine(s *settings.Settings, sink ui.Sink) (*engine, error) {
	store, err := openStore(s)
	if err != nil {
		return nil, err
	}
	dc, err := loadDeviceConfig(store)
	if err != nil {
		return nil, fmt.Errorf("load device config: %w", err)
	}
	if s.Bridge != "" {
		dc.BridgeBase = s.Bridge
		dc.BridgeFromMDNS = false
	}

	fast := newTransport(s)
	power := knob.NewStaticPower()
	ctrl, err := knob.New(knob.Options{
		UI:        sink,
		Bridge:    knob.ClientFactory(newClient(s, "")),
		Store:     store,
		FastPath:  fast,
		Resolver:  newResolver(s, fast),
		Power:     power,
		Config:    dc,
		Mode:      s.Mode,
		Intervals: s.Intervals,
	})
	if err != nil {
		_ = fast.Close()
		return nil, err
	}

	return &engine{store: store, fast: fast, power: power, ctrl: ctrl}, nil
}

// run drives the controller, the network watcher and the config watcher
// until ctx is done.
func (e *engine) run(ctx context.Context) error {
	defer func() { _ = e.fast.Close() }()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := netstate.Watch(ctx, e.ctrl); err != nil && ctx.Err() == nil {
			logging.Warn("Network watcher stopped", zap.Error(err))
		}
	}()
	go func() {
		defer wg.Done()
		if err := e.store.Watch(ctx, e.ctrl.ApplyExternalConfig); err != nil {
			logging.Warn("Config watcher stopped", zap.Error(err))
		}
	}()

	err := e.ctrl.Run(ctx)
	wg.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
