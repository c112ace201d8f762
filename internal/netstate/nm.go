package netstate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/godbus/dbus/v5"
	"go.uber.org/zap"

	"github.com/muurk/knob/internal/logging"
)

const (
	nmService   = "org.freedesktop.NetworkManager"
	nmPath      = "/org/freedesktop/NetworkManager"
	nmInterface = "org.freedesktop.NetworkManager"
	nmSignal    = "StateChanged"

	callTimeout = 5 * time.Second
)

// ErrSignalsClosed is returned when the bus stops delivering signals.
var ErrSignalsClosed = errors.New("netstate: D-Bus signal channel closed")

// NMWatcher follows NetworkManager's global state over the system bus.
type NMWatcher struct {
	conn *dbus.Conn
}

// NewNMWatcher connects to the system bus.
func NewNMWatcher() (*NMWatcher, error) {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, fmt.Errorf("connect system bus: %w", err)
	}
	return &NMWatcher{conn: conn}, nil
}

// Close releases the bus connection.
func (w *NMWatcher) Close() {
	if err := w.conn.Close(); err != nil {
		logging.Warn("Failed to close D-Bus connection", zap.Error(err))
	}
}

// State reads the current NMState.
func (w *NMWatcher) State(ctx context.Context) (uint32, error) {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	var v dbus.Variant
	obj := w.conn.Object(nmService, nmPath)
	if err := obj.CallWithContext(ctx, "org.freedesktop.DBus.Properties.Get", 0, nmInterface, "State").Store(&v); err != nil {
		return 0, fmt.Errorf("read NetworkManager state: %w", err)
	}
	state, ok := v.Value().(uint32)
	if !ok {
		return 0, fmt.Errorf("unexpected NetworkManager state type %T", v.Value())
	}
	return state, nil
}

// Run reports the current state, then every StateChanged signal, until ctx
// is done.
func (w *NMWatcher) Run(ctx context.Context, obs Observer) error {
	state, err := w.State(ctx)
	if err != nil {
		return err
	}

	opts := []dbus.MatchOption{
		dbus.WithMatchObjectPath(nmPath),
		dbus.WithMatchInterface(nmInterface),
		dbus.WithMatchMember(nmSignal),
	}
	if err := w.conn.AddMatchSignalContext(ctx, opts...); err != nil {
		return fmt.Errorf("subscribe to %s: %w", nmSignal, err)
	}
	defer func() {
		if err := w.conn.RemoveMatchSignal(opts...); err != nil {
			logging.Debug("Failed to remove match rule", zap.Error(err))
		}
	}()

	signals := make(chan *dbus.Signal, 10)
	w.conn.Signal(signals)
	defer w.conn.RemoveSignal(signals)

	r := newReporter(obs)
	logging.Info("Watching NetworkManager", zap.Uint32("state", state))
	r.report(Classify(state))

	for {
		select {
		case <-ctx.Done():
			return nil
		case sig, ok := <-signals:
			if !ok {
				return ErrSignalsClosed
			}
			if s, ok := stateFromSignal(sig); ok {
				r.report(Classify(s))
			}
		}
	}
}

// stateFromSignal extracts the new state from a StateChanged signal.
func stateFromSignal(sig *dbus.Signal) (uint32, bool) {
	if sig == nil || sig.Name != nmInterface+"."+nmSignal || len(sig.Body) < 1 {
		return 0, false
	}
	state, ok := sig.Body[0].(uint32)
	return state, ok
}
