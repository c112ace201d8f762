// Package netstate reports host network connectivity to the knob controller.
//
// On Linux hosts running NetworkManager the state is taken from its
// StateChanged D-Bus signal. Elsewhere the interface table is polled.
package netstate

import (
	"context"
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/knob/internal/logging"
)

// Observer receives connectivity transitions. *knob.Controller satisfies it.
type Observer interface {
	SetNetworkConnecting()
	SetNetworkReady(ready bool)
	SetDeviceIP(ip string)
}

// Event is a connectivity transition.
type Event int

const (
	EventNone Event = iota
	EventConnecting
	EventReady
	EventLost
)

func (e Event) String() string {
	switch e {
	case EventConnecting:
		return "connecting"
	case EventReady:
		return "ready"
	case EventLost:
		return "lost"
	default:
		return "none"
	}
}

// NetworkManager NMState values.
const (
	nmStateUnknown         = 0
	nmStateAsleep          = 10
	nmStateDisconnected    = 20
	nmStateDisconnecting   = 30
	nmStateConnecting      = 40
	nmStateConnectedLocal  = 50
	nmStateConnectedSite   = 60
	nmStateConnectedGlobal = 70
)

// Classify maps an NMState to a transition. Link-local connectivity is not
// enough to reach a bridge on the LAN, so it counts as lost.
func Classify(state uint32) Event {
	switch state {
	case nmStateConnecting:
		return EventConnecting
	case nmStateConnectedSite, nmStateConnectedGlobal:
		return EventReady
	case nmStateAsleep, nmStateDisconnected, nmStateDisconnecting, nmStateConnectedLocal:
		return EventLost
	default:
		return EventNone
	}
}

// reporter forwards transitions to an Observer, dropping repeats.
type reporter struct {
	obs    Observer
	last   Event
	lookup func() string
}

func newReporter(obs Observer) *reporter {
	return &reporter{obs: obs, lookup: LocalIP}
}

func (r *reporter) report(ev Event) {
	if ev == EventNone || ev == r.last {
		return
	}
	logging.Debug("Network state changed",
		zap.String("from", r.last.String()),
		zap.String("to", ev.String()),
	)
	r.last = ev

	switch ev {
	case EventConnecting:
		r.obs.SetNetworkConnecting()
	case EventReady:
		if ip := r.lookup(); ip != "" {
			r.obs.SetDeviceIP(ip)
		}
		r.obs.SetNetworkReady(true)
	case EventLost:
		r.obs.SetNetworkReady(false)
	}
}

// Watch reports connectivity to obs until ctx is done. It uses
// NetworkManager when available and falls back to polling interfaces.
func Watch(ctx context.Context, obs Observer) error {
	nm, err := NewNMWatcher()
	if err == nil {
		defer nm.Close()
		if err = nm.Run(ctx, obs); err == nil || ctx.Err() != nil {
			return ctx.Err()
		}
	}
	logging.Info("NetworkManager unavailable, polling interfaces", zap.Error(err))
	return NewPoller(DefaultPollInterval).Run(ctx, obs)
}

// LocalIP returns the first IPv4 address of an up, non-loopback interface,
// or "" when there is none.
func LocalIP() string {
	ifaces, err := net.Interfaces()
	if err != nil {
		return ""
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			ipnet, ok := addr.(*net.IPNet)
			if !ok {
				continue
			}
			if ip4 := ipnet.IP.To4(); ip4 != nil && !ip4.IsLinkLocalUnicast() {
				return ip4.String()
			}
		}
	}
	return ""
}

// DefaultPollInterval is how often Poller checks the interface table.
const DefaultPollInterval = 2 * time.Second

// Poller detects connectivity by polling for a routable IPv4 address.
type Poller struct {
	interval time.Duration
	lookup   func() string
}

// NewPoller creates a poller checking every interval.
func NewPoller(interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{interval: interval, lookup: LocalIP}
}

// Run polls until ctx is done.
func (p *Poller) Run(ctx context.Context, obs Observer) error {
	var ip string
	r := newReporter(obs)
	r.lookup = func() string { return ip }
	r.report(EventConnecting)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		if ip = p.lookup(); ip != "" {
			r.report(EventReady)
		} else if r.last == EventReady {
			r.report(EventLost)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
